// Package config loads .loksync.yaml project files.
//
// The file is optional. When present it provides project defaults for every
// sync flag; flags given on the command line still take precedence.
//
//	source: locales/en
//	output: locales
//	languages: [de, id, ja]
//	concurrency: 10
//	url: http://localhost:5000/translate
//	timeout: 30s
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/loksync/langmeta"
)

// FileName is the default config file name.
const FileName = ".loksync.yaml"

// TokenEnv is the environment variable consulted for the bearer token.
const TokenEnv = "LOKSYNC_TOKEN"

// Defaults used when neither a flag nor the config file sets a value.
const (
	DefaultSource      = "locales/en"
	DefaultOutput      = "locales"
	DefaultSourceLang  = "en"
	DefaultConcurrency = 10
	DefaultURL         = "http://localhost:5000/translate"
	DefaultTimeout     = 30 * time.Second
)

// DefaultLanguages are the target languages when none are configured.
var DefaultLanguages = []string{"de", "id", "ja"}

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the .loksync.yaml structure. Zero values mean "not set".
type File struct {
	// Source is the directory holding the source-language documents.
	Source string `yaml:"source,omitempty"`
	// Output is the directory receiving <lang>/ subtrees.
	Output string `yaml:"output,omitempty"`
	// SourceLang is the language of the source documents.
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages are the target language codes.
	Languages []string `yaml:"languages,omitempty"`
	// Concurrency is the maximum number of backend calls in flight.
	Concurrency int `yaml:"concurrency,omitempty"`
	// URL is the translation endpoint.
	URL string `yaml:"url,omitempty"`
	// Token is a bearer token. Prefer LOKSYNC_TOKEN or `loksync auth login`.
	Token string `yaml:"token,omitempty"`
	// Timeout bounds a single backend call, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// MaxRetries is the number of retries for a failed call.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for the backend.
	Proxy string `yaml:"proxy,omitempty"`
	// Exclude lists directories under Source that are not scanned.
	Exclude []string `yaml:"exclude,omitempty"`
}

// LoadFile reads path. It returns nil without error when the file does not
// exist. Relative directories in the file are resolved against the file's
// own directory.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Dir(path)
	f.Source = resolveDir(base, f.Source)
	f.Output = resolveDir(base, f.Output)
	for i, dir := range f.Exclude {
		f.Exclude[i] = resolveDir(base, dir)
	}
	return &f, nil
}

func resolveDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// ---------------------------------------------------------------------------
// Resolved configuration
// ---------------------------------------------------------------------------

// Config is the effective configuration of a sync run.
type Config struct {
	Source      string
	Output      string
	SourceLang  string
	Languages   []string
	Concurrency int
	URL         string
	Token       string
	Timeout     time.Duration
	MaxRetries  int
	Proxy       string
	Exclude     []string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Source:      DefaultSource,
		Output:      DefaultOutput,
		SourceLang:  DefaultSourceLang,
		Languages:   append([]string(nil), DefaultLanguages...),
		Concurrency: DefaultConcurrency,
		URL:         DefaultURL,
		Timeout:     DefaultTimeout,
	}
}

// Apply overlays every value set in f onto c.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if f.Source != "" {
		c.Source = f.Source
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.SourceLang != "" {
		c.SourceLang = f.SourceLang
	}
	if len(f.Languages) > 0 {
		c.Languages = append([]string(nil), f.Languages...)
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.URL != "" {
		c.URL = f.URL
	}
	if f.Token != "" {
		c.Token = f.Token
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.MaxRetries != 0 {
		c.MaxRetries = f.MaxRetries
	}
	if f.Proxy != "" {
		c.Proxy = f.Proxy
	}
	if len(f.Exclude) > 0 {
		c.Exclude = append([]string(nil), f.Exclude...)
	}
}

// Validate checks c. Language codes are trimmed and duplicates dropped;
// otherwise they are kept as configured.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("backend URL is empty")
	}
	if c.Source == "" || c.Output == "" {
		return errors.New("source and output directories must be set")
	}
	if sameDir(c.Source, c.Output) {
		return fmt.Errorf("output directory %s must differ from source directory", c.Output)
	}

	c.SourceLang = strings.TrimSpace(c.SourceLang)
	if _, err := langmeta.Canonicalize(c.SourceLang); err != nil {
		return fmt.Errorf("source language: %w", err)
	}

	langs, err := langmeta.CheckList(c.Languages)
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		return errors.New("no target languages configured")
	}
	for _, lang := range langs {
		if langmeta.Same(lang, c.SourceLang) {
			return fmt.Errorf("target language %s is the source language", lang)
		}
	}
	c.Languages = langs
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
