package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/lattice"
	"github.com/hurou927/fd-discover/internal/tane"
)

type payload struct {
	NumAttributes int              `json:"num_attributes"`
	NumTuples     int              `json:"num_tuples"`
	Previous      lattice.Snapshot `json:"previous"`
	Current       lattice.Snapshot `json:"current"`
}

func digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Checkpointer returns a tane.Checkpointer that saves states under run id.
// Each save also records how many dependencies the run had emitted at that point.
func (s *Store) Checkpointer(id uuid.UUID) tane.Checkpointer {
	return &runCheckpointer{store: s, id: id}
}

type runCheckpointer struct {
	store *Store
	id    uuid.UUID
}

func (c *runCheckpointer) Save(ctx context.Context, st *tane.State) error {
	data, err := json.Marshal(payload{
		NumAttributes: st.NumAttributes,
		NumTuples:     st.NumTuples,
		Previous:      st.Previous.Snapshot(),
		Current:       st.Current.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return c.store.save(ctx, c.id, st.Current.Height, data)
}

func (s *Store) save(ctx context.Context, id uuid.UUID, level int, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var emitted int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dependencies WHERE run_id = ?`, id.String()).Scan(&emitted); err != nil {
		return fmt.Errorf("counting dependencies: %w", err)
	}
	now := time.Now().UTC().Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (run_id, level, emitted, digest, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), level, emitted, digest(data), data, now); err != nil {
		return fmt.Errorf("inserting checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET updated_at = ? WHERE id = ?`, now, id.String()); err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}

	s.log.Debug("checkpoint saved",
		zap.Stringer("run", id),
		zap.Int("level", level),
		zap.Int("emitted", emitted),
		zap.Int("bytes", len(data)))
	return nil
}

// Latest loads the most recent checkpoint of run id.
func (s *Store) Latest(ctx context.Context, id uuid.UUID) (*tane.State, error) {
	var (
		level int
		sum   string
		data  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT level, digest, payload FROM checkpoints WHERE run_id = ? ORDER BY level DESC LIMIT 1`,
		id.String()).Scan(&level, &sum, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint of run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint of run %s: %w", id, err)
	}
	if digest(data) != sum {
		return nil, fmt.Errorf("run %s level %d: %w: digest mismatch", id, level, ErrCorrupt)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("run %s level %d: %w: %w", id, level, ErrCorrupt, err)
	}
	prev, err := lattice.Restore(p.Previous)
	if err != nil {
		return nil, fmt.Errorf("run %s level %d: %w: %w", id, level, ErrCorrupt, err)
	}
	cur, err := lattice.Restore(p.Current)
	if err != nil {
		return nil, fmt.Errorf("run %s level %d: %w: %w", id, level, ErrCorrupt, err)
	}
	return &tane.State{
		NumAttributes: p.NumAttributes,
		NumTuples:     p.NumTuples,
		Previous:      prev,
		Current:       cur,
	}, nil
}

// Rewind drops the dependencies recorded after the latest checkpoint of run id, which
// a resumed search reports again. It returns the number of dependencies kept.
func (s *Store) Rewind(ctx context.Context, id uuid.UUID) (int, error) {
	var emitted int
	err := s.db.QueryRowContext(ctx,
		`SELECT emitted FROM checkpoints WHERE run_id = ? ORDER BY level DESC LIMIT 1`,
		id.String()).Scan(&emitted)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checkpoint of run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("querying checkpoint of run %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dependencies WHERE run_id = ? AND seq > ?`, id.String(), emitted)
	if err != nil {
		return 0, fmt.Errorf("rewinding run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.Info("discarded dependencies recorded after checkpoint",
			zap.Stringer("run", id), zap.Int64("count", n))
	}
	return emitted, nil
}

// Recorder returns a sink that appends dependencies to run id. Emit uses ctx for its
// database calls.
func (s *Store) Recorder(ctx context.Context, id uuid.UUID) (fd.Sink, error) {
	var last int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM dependencies WHERE run_id = ?`, id.String()).Scan(&last); err != nil {
		return nil, fmt.Errorf("querying dependencies of run %s: %w", id, err)
	}
	return &recorder{ctx: ctx, store: s, id: id, seq: last}, nil
}

type recorder struct {
	ctx   context.Context
	store *Store
	id    uuid.UUID
	seq   int
}

func (r *recorder) Emit(d fd.Dependency) error {
	lhs, err := d.Determinant.MarshalText()
	if err != nil {
		return err
	}
	if _, err := r.store.db.ExecContext(r.ctx,
		`INSERT INTO dependencies (run_id, seq, determinant, dependent, error) VALUES (?, ?, ?, ?, ?)`,
		r.id.String(), r.seq+1, string(lhs), d.Dependent, d.Error); err != nil {
		return fmt.Errorf("recording dependency: %w", err)
	}
	r.seq++
	return nil
}

// Dependencies returns the dependencies recorded for run id in emission order.
func (s *Store) Dependencies(ctx context.Context, id uuid.UUID) ([]fd.Dependency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT determinant, dependent, error FROM dependencies WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying dependencies of run %s: %w", id, err)
	}
	defer rows.Close()

	var deps []fd.Dependency
	for rows.Next() {
		var (
			lhs string
			d   fd.Dependency
		)
		if err := rows.Scan(&lhs, &d.Dependent, &d.Error); err != nil {
			return nil, fmt.Errorf("scanning dependency: %w", err)
		}
		var set attrset.Set
		if err := set.UnmarshalText([]byte(lhs)); err != nil {
			return nil, fmt.Errorf("decoding determinant %q: %w", lhs, err)
		}
		d.Determinant = set
		deps = append(deps, d)
	}
	return deps, rows.Err()
}
