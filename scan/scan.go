// Package scan discovers JSON localization documents under a source directory.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the file extension of localization documents.
const Extension = ".json"

// skipDirs contains directory names that never hold source documents.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// FindDocuments recursively finds all .json files under root, sorted.
// Directories listed in exclude (for example an output directory nested
// inside the source tree) are not descended into.
func FindDocuments(root string, exclude ...string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, dir := range exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			excluded[abs] = true
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil && excluded[abs] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), Extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// OutputPath maps a document under sourceRoot to its location for lang
// under outputRoot: <outputRoot>/<lang>/<path relative to sourceRoot>.
func OutputPath(sourceRoot, outputRoot, lang, doc string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, doc)
	if err != nil {
		return "", fmt.Errorf("resolving %s against %s: %w", doc, sourceRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside source directory %s", doc, sourceRoot)
	}
	return filepath.Join(outputRoot, lang, rel), nil
}
