package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("build not found")

// Store persists build records.
type Store struct {
	db   *sql.DB
	path string
	// lock is held shared while the store is open so that only an opener
	// with no live peers reclaims rows left running.
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const buildColumns = "run_id, unit, project, output, status, tracks, warnings, error, started_at, finished_at"

// Open creates or connects to the history database at path. When no other
// process has the database open, rows a previous process left running are
// marked interrupted.
func Open(ctx context.Context, path string) (*Store, error) {
	ctx = ensureContext(ctx)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.claim(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// claim takes the shared open lock, reclaiming stale running rows first if
// the exclusive lock is free.
func (s *Store) claim(ctx context.Context) error {
	alone, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	if alone {
		_, markErr := s.markInterrupted(ctx)
		if err := s.lock.Unlock(); err != nil && markErr == nil {
			markErr = fmt.Errorf("unlock history: %w", err)
		}
		if markErr != nil {
			return markErr
		}
	}
	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		err = errors.Join(err, s.lock.Unlock())
	}
	return err
}

// Record inserts a running row for b. RunID, Unit and Project are required;
// a zero StartedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, b Build) error {
	if strings.TrimSpace(b.RunID) == "" || strings.TrimSpace(b.Unit) == "" {
		return errors.New("history: run id and unit are required")
	}
	started := b.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO builds (run_id, unit, project, output, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		b.RunID,
		b.Unit,
		b.Project,
		nullableString(b.Output),
		StatusRunning,
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert build %s: %w", b.RunID, err)
	}
	return nil
}

// Finish records the outcome of a running build. A nil outcome error marks
// it succeeded.
func (s *Store) Finish(ctx context.Context, runID string, out Outcome) error {
	status := StatusSucceeded
	var message any
	if out.Err != nil {
		status = StatusFailed
		message = out.Err.Error()
	}
	var affected int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(ensureContext(ctx),
			`UPDATE builds
            SET status = ?, output = COALESCE(?, output), tracks = ?, warnings = ?, error = ?, finished_at = ?
            WHERE run_id = ? AND status = ?`,
			status,
			nullableString(out.Output),
			out.Tracks,
			out.Warnings,
			message,
			formatTime(time.Now()),
			runID,
			StatusRunning,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("finish build %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("finish build %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Get returns the build with runID.
func (s *Store) Get(ctx context.Context, runID string) (*Build, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+buildColumns+" FROM builds WHERE run_id = ?", runID)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get build %s: %w", runID, err)
	}
	return b, nil
}

// List returns builds newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Build, error) {
	query := "SELECT " + buildColumns + " FROM builds"
	var (
		where []string
		args  []any
	)
	if f.Unit != "" {
		where = append(where, "unit = ?")
		args = append(args, f.Unit)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// Stats counts builds grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM builds GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Prune deletes finished builds that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(ensureContext(ctx),
			`DELETE FROM builds WHERE status != ? AND started_at < ?`,
			StatusRunning, formatTime(cutoff))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return removed, nil
}

func (s *Store) markInterrupted(ctx context.Context) (int64, error) {
	var count int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE builds SET status = ?, error = ?, finished_at = ? WHERE status = ?`,
			StatusInterrupted, "process exited before the build finished", formatTime(time.Now()), StatusRunning)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark interrupted builds: %w", err)
	}
	return count, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func scanBuild(scanner interface{ Scan(dest ...any) error }) (*Build, error) {
	var (
		b           Build
		status      string
		output      sql.NullString
		message     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&b.RunID,
		&b.Unit,
		&b.Project,
		&output,
		&status,
		&b.Tracks,
		&b.Warnings,
		&message,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.Output = output.String
	b.Error = message.String
	if started, err := time.Parse(timeLayout, startedRaw); err == nil {
		b.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			b.FinishedAt = &finished
		}
	}
	return &b, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
