package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"nexalint/internal/core/errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultProjectKey  = "default"
	defaultBusyTimeout = 2 * time.Second
)

// Store is a SQLite-backed run history. It is safe for concurrent use.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory if needed and applies
// migrations. busyTimeout <= 0 uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "history path is a directory, expected file"), errors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	// WAL and busy_timeout keep watch-mode writes from failing on lock churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun stores run and its file scores in one transaction. A missing ID or
// start time is filled in; saving an existing ID replaces it.
func (s *Store) SaveRun(ctx context.Context, projectKey string, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ProjectKey = normalizeKey(projectKey)
	if run.ID == "" {
		run.ID = NewRunID()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid run id"), errors.CtxOperation, "save run")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	breakdown := run.Breakdown
	if breakdown == nil {
		breakdown = map[string]int{}
	}
	rawBreakdown, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}

	return s.withRetry(ctx, "save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  id, project_key, started_at_ms, duration_ms, file_count, total_issues,
  overall_score, average_score, breakdown_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.ProjectKey,
			run.StartedAt.UTC().UnixMilli(),
			run.Duration.Milliseconds(),
			run.Files,
			run.TotalIssues,
			run.OverallScore,
			run.AverageScore,
			string(rawBreakdown),
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_scores (run_id, path, score, issue_count) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, fs := range run.FileScores {
			if _, err := stmt.ExecContext(ctx, run.ID, fs.Path, fs.Score, fs.IssueCount); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the newest runs for projectKey started at or after since,
// oldest first. limit <= 0 returns every match. File scores are not loaded.
func (s *Store) LoadRuns(ctx context.Context, projectKey string, since time.Time, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, project_key, started_at_ms, duration_ms, file_count, total_issues,
  overall_score, average_score, breakdown_json
FROM runs
WHERE project_key = ?`
	args := []any{normalizeKey(projectKey)}
	if !since.IsZero() {
		query += " AND started_at_ms >= ?"
		args = append(args, since.UTC().UnixMilli())
	}
	query += " ORDER BY started_at_ms DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var runs []Run
	err := s.withRetry(ctx, "load runs", func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs = runs[:0]
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

// Latest returns the newest run for projectKey with its file scores.
func (s *Store) Latest(ctx context.Context, projectKey string) (Run, bool, error) {
	runs, err := s.LoadRuns(ctx, projectKey, time.Time{}, 1)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	run := runs[0]
	scores, err := s.FileScores(ctx, run.ID)
	if err != nil {
		return Run{}, false, err
	}
	run.FileScores = scores
	return run, true, nil
}

// FileScores returns the per-file scores of one run ordered by path.
func (s *Store) FileScores(ctx context.Context, runID string) ([]FileScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scores []FileScore
	err := s.withRetry(ctx, "load file scores", func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT path, score, issue_count FROM file_scores WHERE run_id = ? ORDER BY path`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		scores = scores[:0]
		for rows.Next() {
			var fs FileScore
			if err := rows.Scan(&fs.Path, &fs.Score, &fs.IssueCount); err != nil {
				return fmt.Errorf("scan file score row: %w", err)
			}
			scores = append(scores, fs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Trend loads up to window runs and summarises them.
func (s *Store) Trend(ctx context.Context, projectKey string, window int) (Trend, error) {
	runs, err := s.LoadRuns(ctx, projectKey, time.Time{}, window)
	if err != nil {
		return Trend{}, err
	}
	return BuildTrend(runs), nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run          Run
		startedMS    int64
		durationMS   int64
		rawBreakdown string
	)
	if err := rows.Scan(
		&run.ID,
		&run.ProjectKey,
		&startedMS,
		&durationMS,
		&run.Files,
		&run.TotalIssues,
		&run.OverallScore,
		&run.AverageScore,
		&rawBreakdown,
	); err != nil {
		return Run{}, fmt.Errorf("scan run row: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedMS).UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(rawBreakdown), &run.Breakdown); err != nil {
		return Run{}, fmt.Errorf("decode breakdown of run %s: %w", run.ID, err)
	}
	return run, nil
}

func normalizeKey(projectKey string) string {
	if key := strings.TrimSpace(projectKey); key != "" {
		return key
	}
	return defaultProjectKey
}

func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err looks like a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database")
}
