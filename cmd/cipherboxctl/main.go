// cipherboxctl is the command-line client for a CipherBox vault: it opens
// the vault with a locally-held identity key, walks the encrypted folder
// tree, and performs uploads, downloads, renames, moves, deletes, version
// operations, device registry management, and recovery-bundle export.
package main

import (
	"os"

	"github.com/cipherbox-vault/core/cmd/cipherboxctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
