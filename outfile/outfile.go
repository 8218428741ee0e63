// Package outfile writes generated files only when their content changes.
//
// Repeated runs with identical output leave files (and their modification
// times) untouched. Writes go through a temporary file in the target
// directory followed by a rename, so readers never observe a partial file.
package outfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Existing returns the current content of path, or nil when it does not exist.
func Existing(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Changed reports whether writing data to path would modify it.
func Changed(path string, data []byte) (bool, error) {
	existing, err := Existing(path)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, nil
	}
	return !bytes.Equal(existing, data), nil
}

// WriteIfChanged writes data to path unless the file already holds exactly
// data. Missing parent directories are created. It returns true when the
// file was written.
func WriteIfChanged(path string, data []byte) (bool, error) {
	changed, err := Changed(path, data)
	if err != nil || !changed {
		return false, err
	}
	if err := writeAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}

// ---------------------------------------------------------------------------
// Diff
// ---------------------------------------------------------------------------

// Diff renders a line-oriented diff between old and new content. Removed
// lines are prefixed with "-", added lines with "+" and unchanged lines
// with a space. It returns the rendered text and the added/removed counts.
func Diff(oldContent, newContent string) (text string, added, removed int) {
	dmp := diffmatchpatch.New()

	charsA, charsB, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(charsA, charsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var b strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}

		scanner := bufio.NewScanner(strings.NewReader(d.Text))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				removed++
			case diffmatchpatch.DiffInsert:
				added++
			}
			b.WriteString(prefix)
			b.WriteString(scanner.Text())
			b.WriteByte('\n')
		}
	}
	return b.String(), added, removed
}
