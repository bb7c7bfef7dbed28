package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"transcribeAnything/internal/models"
)

// Store persists submission attempts.
type Store interface {
	Record(ctx context.Context, s *models.Submission) error
	// Recent returns up to limit submissions, newest first.
	Recent(ctx context.Context, limit int) ([]*models.Submission, error)
	// Prune deletes submissions created before cutoff and returns how many went.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id           TEXT PRIMARY KEY,
			job_id       TEXT NOT NULL,
			kind         TEXT NOT NULL,
			input_source TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			step         TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
		CREATE INDEX IF NOT EXISTS idx_submissions_job_id     ON submissions(job_id);
	`)
	return err
}

// Record inserts s, assigning an ID when it has none.
func (s *SQLiteStore) Record(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, job_id, kind, input_source, status, step, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID,
		sub.JobID,
		string(sub.Kind),
		sub.InputSource,
		string(sub.Status),
		sub.Step,
		sub.Error,
		sub.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.JobID, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*models.Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, kind, input_source, status, step, error, created_at
		FROM submissions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		var (
			sub          models.Submission
			kind, status string
		)
		if err := rows.Scan(&sub.ID, &sub.JobID, &kind, &sub.InputSource, &status, &sub.Step, &sub.Error, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Kind = models.InputKind(kind)
		sub.Status = models.SubmissionStatus(status)
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
