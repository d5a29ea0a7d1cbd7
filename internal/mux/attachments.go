package mux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FontExtensions are the attachment types taken from font directories.
var FontExtensions = []string{"ttf", "otf", "ttc"}

var fontMimeTypes = map[string]string{
	"ttf": "font/ttf",
	"otf": "font/otf",
	"ttc": "font/collection",
}

// CollectAttachments lists the files in dirs whose extension is in exts.
// Files are de-duplicated by base name, first directory wins, and returned
// sorted by name within each directory. Missing directories are skipped.
func CollectAttachments(dirs []string, exts []string) ([]Attachment, error) {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []Attachment
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read attachment dir %s: %w", dir, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
			if _, ok := allowed[ext]; !ok {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Attachment{
				Path:     filepath.Join(dir, name),
				Name:     name,
				MimeType: fontMimeTypes[ext],
			})
		}
	}
	return out, nil
}
