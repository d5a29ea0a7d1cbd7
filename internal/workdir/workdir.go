package workdir

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"subforge/internal/logging"
	"subforge/internal/textutil"
)

// Dir returns the work directory of unit under root.
func Dir(root, unit string) string {
	name := textutil.SanitizeSegment(unit)
	if name == "" {
		name = "_"
	}
	return filepath.Join(root, name)
}

// Entry describes one unit directory.
type Entry struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanResult reports what a cleanup removed.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory with the error that kept it.
type CleanupError struct {
	Path  string
	Error error
}

// List returns the unit directories under root sorted by name. A missing
// root yields no entries.
func List(root string) ([]Entry, error) {
	entries, err := readDirs(root)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(root, entry.Name())
		out = append(out, Entry{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	return out, nil
}

// CleanStale removes unit directories not modified within maxAge.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, dryRun bool, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return clean(ctx, root, dryRun, logger, "stale", func(entry fs.DirEntry) bool {
		info, err := entry.Info()
		return err == nil && info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes unit directories whose name is not in keep. Names
// in keep are sanitized the same way Dir does.
func CleanOrphaned(ctx context.Context, root string, keep []string, dryRun bool, logger *slog.Logger) CleanResult {
	known := make(map[string]struct{}, len(keep))
	for _, unit := range keep {
		known[filepath.Base(Dir("", unit))] = struct{}{}
	}
	return clean(ctx, root, dryRun, logger, "orphaned", func(entry fs.DirEntry) bool {
		_, ok := known[entry.Name()]
		return !ok
	})
}

func clean(ctx context.Context, root string, dryRun bool, logger *slog.Logger, reason string, match func(fs.DirEntry) bool) CleanResult {
	logger = logging.NewComponentLogger(logger, "workdir")
	var result CleanResult
	entries, err := readDirs(root)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: ctx.Err()})
			return result
		}
		if !match(entry) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if dryRun {
			result.Removed = append(result.Removed, path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove work directory", "workdir_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed work directory",
			logging.String("path", path),
			logging.String("reason", reason),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
	return result
}

func readDirs(root string) ([]fs.DirEntry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	dirs := entries[:0]
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	return dirs, nil
}

// dirSize is best effort; unreadable files are not counted.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
