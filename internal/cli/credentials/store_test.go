package credentials

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore builds a store on an in-memory filesystem.
func memStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreWithFs(afero.NewMemMapFs(), "/home/user/.config/cipherboxctl/config.json")
	require.NoError(t, err)
	return store
}

func TestContextIsOpen(t *testing.T) {
	ctx := &Context{}
	assert.False(t, ctx.IsOpen())

	ctx.RootPointerID = "k51qzi5uqu5d..."
	assert.True(t, ctx.IsOpen())
}

func TestStoreOperations(t *testing.T) {
	store := memStore(t)
	assert.Equal(t, "/home/user/.config/cipherboxctl/config.json", store.ConfigPath())

	_, err := store.GetCurrentContext()
	assert.ErrorIs(t, err, ErrNoCurrentContext)
	assert.Empty(t, store.ListContexts())

	ctx1 := &Context{
		ServerURL:     "http://localhost:8080",
		Username:      "admin",
		RootPointerID: "k51qzi5uqu5dg...",
		LastResolved:  time.Now(),
	}
	err = store.SetContext("default", ctx1)
	require.NoError(t, err)

	err = store.UseContext("default")
	require.NoError(t, err)

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
	assert.Equal(t, "admin", current.Username)

	ctx2 := &Context{
		ServerURL: "http://production:8080",
		Username:  "prod-admin",
	}
	err = store.SetContext("production", ctx2)
	require.NoError(t, err)

	contexts := store.ListContexts()
	assert.Len(t, contexts, 2)
	assert.Contains(t, contexts, "default")
	assert.Contains(t, contexts, "production")

	err = store.UseContext("production")
	require.NoError(t, err)
	assert.Equal(t, "production", store.GetCurrentContextName())

	err = store.RenameContext("production", "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", store.GetCurrentContextName())

	err = store.DeleteContext("prod")
	require.NoError(t, err)
	assert.Empty(t, store.GetCurrentContextName())

	_, err = store.GetContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)

	err = store.UseContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestStoreUpdateRootPointer(t *testing.T) {
	store := memStore(t)

	ctx := &Context{
		ServerURL: "http://localhost:8080",
		Username:  "admin",
	}
	err := store.SetContext("default", ctx)
	require.NoError(t, err)
	err = store.UseContext("default")
	require.NoError(t, err)

	resolvedAt := time.Now()
	err = store.UpdateRootPointer("k51qzi5uqu5dnewroot", resolvedAt)
	require.NoError(t, err)

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "k51qzi5uqu5dnewroot", current.RootPointerID)
	assert.WithinDuration(t, resolvedAt, current.LastResolved, time.Second)
}

func TestStoreClearCurrentContext(t *testing.T) {
	store := memStore(t)

	ctx := &Context{
		ServerURL:     "http://localhost:8080",
		Username:      "admin",
		RootPointerID: "k51qzi5uqu5doldroot",
		LastResolved:  time.Now(),
	}
	err := store.SetContext("default", ctx)
	require.NoError(t, err)
	err = store.UseContext("default")
	require.NoError(t, err)

	err = store.ClearCurrentContext()
	require.NoError(t, err)

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Empty(t, current.RootPointerID)
	assert.True(t, current.LastResolved.IsZero())
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
	assert.Equal(t, "admin", current.Username)
}

func TestStorePreferences(t *testing.T) {
	store := memStore(t)

	prefs := store.GetPreferences()
	assert.Empty(t, prefs.DefaultOutput)
	assert.Empty(t, prefs.Color)

	newPrefs := Preferences{
		DefaultOutput: "json",
		Color:         "auto",
		Editor:        "vim",
	}
	err := store.SetPreferences(newPrefs)
	require.NoError(t, err)

	prefs = store.GetPreferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
	assert.Equal(t, "vim", prefs.Editor)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	const path = "/home/user/.config/cipherboxctl/config.json"

	store, err := NewStoreWithFs(fs, path)
	require.NoError(t, err)
	require.NoError(t, store.SetContext("default", &Context{ServerURL: "http://localhost:8080"}))
	require.NoError(t, store.UseContext("default"))

	reopened, err := NewStoreWithFs(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "default", reopened.GetCurrentContextName())

	current, err := reopened.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
}
