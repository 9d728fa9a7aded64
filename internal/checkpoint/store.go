// Package checkpoint persists discovery runs in SQLite so an interrupted search can
// be resumed from the last level boundary.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/db"
)

var (
	// ErrNotFound is returned when a run or checkpoint does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt is returned when a stored checkpoint fails its digest check or cannot be decoded.
	ErrCorrupt = errors.New("corrupt checkpoint")
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run describes one discovery run.
type Run struct {
	ID                 uuid.UUID
	Relation           string
	Attributes         []string
	Tuples             int
	ErrorThreshold     float64
	MaxDeterminantSize int
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// Level is the height of the latest checkpoint, 0 if there is none.
	Level int
	// Dependencies is the number of recorded dependencies.
	Dependencies int
}

// Store is a SQLite-backed checkpoint store.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	relation TEXT NOT NULL,
	attributes TEXT NOT NULL,
	tuples INTEGER NOT NULL,
	error_threshold REAL NOT NULL,
	max_determinant_size INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id TEXT NOT NULL REFERENCES runs(id),
	level INTEGER NOT NULL,
	emitted INTEGER NOT NULL,
	digest TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, level)
);
CREATE TABLE IF NOT EXISTS dependencies (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	determinant TEXT NOT NULL,
	dependent INTEGER NOT NULL,
	error REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Open opens the store at path, creating its tables if needed.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, log: log}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating checkpoint tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRun registers a run and returns it with its generated ID and timestamps.
func (s *Store) NewRun(ctx context.Context, r Run) (*Run, error) {
	attrs, err := json.Marshal(r.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encoding attributes: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	r.ID = uuid.New()
	r.Status = StatusRunning
	r.CreatedAt, r.UpdatedAt = now, now
	r.Level, r.Dependencies = 0, 0

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, relation, attributes, tuples, error_threshold, max_determinant_size, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Relation, string(attrs), r.Tuples, r.ErrorThreshold, r.MaxDeterminantSize,
		r.Status, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	s.log.Debug("run registered", zap.Stringer("run", r.ID), zap.String("relation", r.Relation))
	return &r, nil
}

// SetStatus updates the status of a run.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Unix(), id.String())
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `r.id, r.relation, r.attributes, r.tuples, r.error_threshold, r.max_determinant_size,
	r.status, r.created_at, r.updated_at,
	COALESCE((SELECT MAX(level) FROM checkpoints c WHERE c.run_id = r.id), 0),
	(SELECT COUNT(*) FROM dependencies d WHERE d.run_id = r.id)`

// Run returns the run with the given ID.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	return r, nil
}

// Runs returns all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r                Run
		id, attrs        string
		created, updated int64
	)
	if err := sc.Scan(&id, &r.Relation, &attrs, &r.Tuples, &r.ErrorThreshold, &r.MaxDeterminantSize,
		&r.Status, &created, &updated, &r.Level, &r.Dependencies); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing run id %q: %w", id, err)
	}
	r.ID = parsed
	if err := json.Unmarshal([]byte(attrs), &r.Attributes); err != nil {
		return nil, fmt.Errorf("decoding attributes of run %s: %w", id, err)
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return &r, nil
}

// splitStatements splits a script on semicolons. The schema has no semicolons
// inside literals.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
