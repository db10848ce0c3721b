package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/cipherbox-vault/core/internal/cli/output"
	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/pkg/config"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/foldergraph"
	"github.com/cipherbox-vault/core/pkg/metrics"
	_ "github.com/cipherbox-vault/core/pkg/metrics/prometheus"
	"github.com/cipherbox-vault/core/pkg/session"
	"github.com/cipherbox-vault/core/pkg/vault"
)

// EnvKeyFile names the environment variable consulted when --key-file is
// not given.
const EnvKeyFile = "CIPHERBOX_KEY_FILE"

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// newPrinter builds the output printer from the global --output flag.
func newPrinter() (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, true), nil
}

// loadKeypair reads the hex-encoded secp256k1 private key from --key-file
// (or $CIPHERBOX_KEY_FILE) and derives its public key. The caller must
// zeroize the returned private key when done; closing the session does
// not do it.
func loadKeypair() (vault.Keypair, error) {
	keyPath := keyFile
	if keyPath == "" {
		keyPath = os.Getenv(EnvKeyFile)
	}
	if keyPath == "" {
		return vault.Keypair{}, fmt.Errorf("no identity key: pass --key-file or set %s", EnvKeyFile)
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return vault.Keypair{}, fmt.Errorf("cannot read key file: %w", err)
	}
	priv, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return vault.Keypair{}, fmt.Errorf("key file is not valid hex: %w", err)
	}
	pub, err := crypto.SECP256K1PublicKeyFromPrivate(priv)
	if err != nil {
		crypto.Zeroize(priv)
		return vault.Keypair{}, fmt.Errorf("key file does not hold a usable private key: %w", err)
	}
	return vault.Keypair{PrivateKey: priv, PublicKey: pub}, nil
}

// openSession loads config, initializes logging, and opens a vault
// session. The returned cleanup closes the session and zeroizes the
// identity key; callers must run it on every exit path.
func openSession(ctx context.Context) (*session.Session, func(), error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}
	cfg.Facade.BaseURL = applyContextServerURL(cfg.Facade.BaseURL)
	if err := InitLogger(cfg); err != nil {
		return nil, nil, err
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	keypair, err := loadKeypair()
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.Open(ctx, cfg, keypair)
	if err != nil {
		crypto.Zeroize(keypair.PrivateKey)
		return nil, nil, err
	}

	rememberRootPointer(sess.Root.RootIpnsName)

	cleanup := func() {
		sess.Close()
		crypto.Zeroize(keypair.PrivateKey)
	}
	return sess, cleanup, nil
}

// splitVaultPath splits a /-separated vault path into its parent directory
// and base name. The root is "/"; "a/b.txt" and "/a/b.txt" are equivalent.
func splitVaultPath(p string) (dir, base string) {
	p = path.Clean("/" + p)
	return path.Dir(p), path.Base(p)
}

// resolveFolder walks a /-separated vault path from the root, loading each
// folder along the way, and returns the node for the final segment.
func resolveFolder(ctx context.Context, sess *session.Session, vaultPath string) (*foldergraph.Node, error) {
	node, err := sess.Graph.Ensure(ctx, "root")
	if err != nil {
		return nil, err
	}
	cleaned := path.Clean("/" + vaultPath)
	if cleaned == "/" {
		return node, nil
	}
	for _, segment := range strings.Split(strings.TrimPrefix(cleaned, "/"), "/") {
		next := ""
		for _, c := range node.Children {
			if !c.IsFile() && c.Name == segment {
				next = c.Folder.ID
				break
			}
		}
		if next == "" {
			return nil, fmt.Errorf("no such folder: %s", segment)
		}
		node, err = sess.Graph.Ensure(ctx, next)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// findFile returns the FilePointer id for name within folder, or an error
// naming the missing file.
func findFile(folder *foldergraph.Node, name string) (string, error) {
	for _, c := range folder.Children {
		if c.IsFile() && c.Name == name {
			return c.File.ID, nil
		}
	}
	return "", fmt.Errorf("no such file: %s", name)
}

// findChild returns the child id for name within folder, file or folder.
func findChild(folder *foldergraph.Node, name string) (string, error) {
	for _, c := range folder.Children {
		if c.Name == name {
			if c.IsFile() {
				return c.File.ID, nil
			}
			return c.Folder.ID, nil
		}
	}
	return "", fmt.Errorf("no such file or folder: %s", name)
}
