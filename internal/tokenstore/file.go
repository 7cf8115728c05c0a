// Package tokenstore persists the session token pair between runs.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/storefront/internal/crypto"
	"github.com/and161185/storefront/internal/model"
)

const (
	appDir   = "storefront"
	fileName = "token.json"
)

var sealAAD = []byte("storefront/token/v1")

// ErrBadPassphrase is returned when a sealed file cannot be opened.
var ErrBadPassphrase = errors.New("token file: wrong passphrase or corrupted data")

// DefaultPath is $XDG_CONFIG_HOME/storefront/token.json, falling back to ~/.config.
func DefaultPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appDir, fileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDir, fileName)
}

// File keeps the token pair in a JSON file, optionally sealed under a passphrase.
type File struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// Option configures a File.
type Option func(*File)

// WithPassphrase seals the file with XChaCha20-Poly1305 under a key derived from p.
// An empty p leaves the file in plain JSON.
func WithPassphrase(p string) Option {
	return func(f *File) {
		if p != "" {
			f.passphrase = []byte(p)
		}
	}
}

// NewFile returns a store at path; an empty path means DefaultPath.
func NewFile(path string, opts ...Option) *File {
	if path == "" {
		path = DefaultPath()
	}
	f := &File{path: path}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

type sealedFile struct {
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

// Set writes tokens, replacing any previous pair.
func (f *File) Set(tokens model.UserToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	if f.passphrase != nil {
		if b, err = f.seal(b); err != nil {
			return fmt.Errorf("seal token file: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Get returns the stored pair or nil when the file does not exist.
func (f *File) Get() (*model.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if f.passphrase != nil {
		if b, err = f.open(b); err != nil {
			return nil, err
		}
	}
	var tokens model.UserToken
	if err := json.Unmarshal(b, &tokens); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, nil
	}
	return &tokens, nil
}

// Clear removes the file. A missing file is not an error.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *File) seal(plain []byte) ([]byte, error) {
	salt, err := crypto.RandBytes(crypto.SaltLen)
	if err != nil {
		return nil, err
	}
	data, err := crypto.Seal(crypto.DeriveKey(f.passphrase, salt), plain, sealAAD)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealedFile{Salt: salt, Data: data})
}

func (f *File) open(raw []byte) ([]byte, error) {
	var sf sealedFile
	if err := json.Unmarshal(raw, &sf); err != nil || len(sf.Data) == 0 {
		return nil, ErrBadPassphrase
	}
	plain, err := crypto.Open(crypto.DeriveKey(f.passphrase, sf.Salt), sf.Data, sealAAD)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plain, nil
}

// Expiry reports the exp claim of a JWT access token without verifying it.
// Opaque tokens report false.
func Expiry(tokens model.UserToken) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
