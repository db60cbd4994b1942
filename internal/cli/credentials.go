package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	credentialsFileName    = "credentials.toml"
	credentialsFileMode    = 0o600
	credentialsDirMode     = 0o700
	credentialsVersion     = 1
	credentialsTempPattern = ".credentials-*.toml.tmp"
)

var errNotSignedIn = errors.New("not signed in; run `notegenie login` first")

// credentials is the session saved by `notegenie login`.
type credentials struct {
	Version   int       `toml:"version"`
	ServerURL string    `toml:"server_url"`
	Token     string    `toml:"token"`
	ExpiresAt time.Time `toml:"expires_at"`
	UserID    string    `toml:"user_id"`
	Username  string    `toml:"username"`
}

type credentialsFile struct {
	path string
}

func newCredentialsFile(configDir string) *credentialsFile {
	return &credentialsFile{path: filepath.Join(configDir, credentialsFileName)}
}

// load returns errNotSignedIn when there is no usable session.
func (f *credentialsFile) load(now time.Time) (*credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNotSignedIn
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var c credentials
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if c.Version != credentialsVersion {
		return nil, fmt.Errorf("unsupported credentials version %d", c.Version)
	}
	if c.Token == "" || c.UserID == "" {
		return nil, errNotSignedIn
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return nil, fmt.Errorf("session expired at %s: %w", c.ExpiresAt.Format(time.RFC3339), errNotSignedIn)
	}
	return &c, nil
}

func (f *credentialsFile) save(c credentials) error {
	c.Version = credentialsVersion

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, credentialsDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, credentialsTempPattern)
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(credentialsFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp credentials file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credentials file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	cleanup = false
	return nil
}

func (f *credentialsFile) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
