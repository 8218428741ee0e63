// Package settings stores loksync user settings, currently the bearer
// tokens for translation backends.
//
// Settings live in the XDG data directory:
//
//	$XDG_DATA_HOME/loksync/  (default: ~/.local/share/loksync/)
//
// auth.json is a JSON object keyed by backend URL:
//
//	{
//	  "https://translate.example.com/translate": {"token": "...", "added": 1700000000}
//	}
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for tokens:
//  1. --token flag (highest priority)
//  2. LOKSYNC_TOKEN environment variable
//  3. token in .loksync.yaml
//  4. This store
package settings

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	dataDirName = "loksync"
	fileName    = "auth.json"
)

// Entry is the stored credential for one backend.
type Entry struct {
	Token string `json:"token"`
	// Added is the Unix time the token was stored.
	Added int64 `json:"added,omitempty"`
}

// Store holds all tokens, keyed by normalized backend URL.
type Store map[string]*Entry

// URLs returns the stored backend URLs in sorted order.
func (s Store) URLs() []string {
	urls := make([]string, 0, len(s))
	for u := range s {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the loksync data directory.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// NormalizeURL returns the key a backend URL is stored under: scheme and
// host lowercased, trailing slashes removed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.Fragment = ""
	return u.String()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the token store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the token store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Token returns the stored token for a backend URL, or "".
func Token(backendURL string) string {
	if e := Load()[NormalizeURL(backendURL)]; e != nil {
		return e.Token
	}
	return ""
}

// SetToken stores a token for a backend URL (upsert).
func SetToken(backendURL, token string) error {
	store := Load()
	store[NormalizeURL(backendURL)] = &Entry{Token: token, Added: time.Now().Unix()}
	return Save(store)
}

// Remove deletes the token for a backend URL. It reports whether a token
// was stored.
func Remove(backendURL string) (bool, error) {
	store := Load()
	key := NormalizeURL(backendURL)
	if _, ok := store[key]; !ok {
		return false, nil
	}
	delete(store, key)
	return true, Save(store)
}

// RemoveAll removes all stored tokens.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// MaskKey returns a masked version of a token for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
