package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and returns a descriptive
// error naming every failing field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q validation (value=%v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("%d validation error(s): %v", len(msgs), msgs)
	}
	return nil
}
