// Package langmeta normalizes language codes and provides display names
// for them in logs and status output.
package langmeta

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Code is the code as given, trimmed.
	Code string
	// Name is the language's own name for itself, e.g. "Deutsch".
	Name string
	// English is the English name, e.g. "German".
	English string
}

// Label returns "Name (code)", or just the code when no name is known.
func (m Meta) Label() string {
	if m.Name == "" || m.Name == m.Code {
		return m.Code
	}
	return fmt.Sprintf("%s (%s)", m.Name, m.Code)
}

// Canonicalize validates a language code and returns its canonical BCP 47
// form: "pt_br" becomes "pt-BR", " EN-us " becomes "en-US". Codes that are
// well-formed but not registered (some backends use private codes such as
// "zt") are kept with simple case normalization. The result is a comparison
// key; legacy codes are mapped ("tl" becomes "fil").
func Canonicalize(lang string) (string, error) {
	normalized := normalize(lang)
	if normalized == "" {
		return "", errors.New("empty language code")
	}

	tag, err := language.Parse(normalized)
	if err != nil {
		var ve language.ValueError
		if errors.As(err, &ve) {
			return normalized, nil
		}
		return "", fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	return tag.String(), nil
}

// CheckList validates every code and drops codes naming the same language
// as an earlier one. Kept codes are only trimmed: backends and output
// directories use them exactly as configured.
func CheckList(langs []string) ([]string, error) {
	seen := make(map[string]bool, len(langs))
	out := make([]string, 0, len(langs))
	for _, lang := range langs {
		key, err := Canonicalize(lang)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(lang))
	}
	return out, nil
}

// Same reports whether a and b name the same language.
func Same(a, b string) bool {
	ca, errA := Canonicalize(a)
	cb, errB := Canonicalize(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return ca == cb
}

func normalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort metadata for a language code. Names come
// from the canonical form; Code stays as given. Unknown codes resolve to
// themselves.
func Resolve(lang string) Meta {
	code := strings.TrimSpace(lang)
	meta := Meta{Code: code, Name: code, English: code}

	canonical, err := Canonicalize(code)
	if err != nil {
		return meta
	}
	tag, err := language.Parse(canonical)
	if err != nil {
		return meta
	}
	if name := display.Self.Name(tag); name != "" {
		meta.Name = name
	}
	if name := display.English.Tags().Name(tag); name != "" {
		meta.English = name
	}
	return meta
}
