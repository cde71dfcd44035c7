package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-posescore/evaluate"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	reference_dir  TEXT NOT NULL,
	candidate_dir  TEXT NOT NULL,
	model          TEXT,
	sigma_preset   TEXT NOT NULL,
	scored         INTEGER NOT NULL,
	skipped        INTEGER NOT NULL,
	mean_oks       REAL
);

CREATE TABLE IF NOT EXISTS pairs (
	run_id      TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	reference   TEXT NOT NULL,
	candidate   TEXT,
	oks         REAL,
	area        REAL,
	skip_reason TEXT,
	error       TEXT,
	PRIMARY KEY (run_id, idx),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// timeLayout is a fixed width UTC timestamp so created_at sorts
// chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is not in the store
var ErrRunNotFound = errors.New("report: run not found")

// RunMeta describes the inputs of an evaluation run
type RunMeta struct {
	ReferenceDir string
	CandidateDir string
	Model        string
	SigmaPreset  string
}

// RunRecord is a stored evaluation run
type RunRecord struct {
	RunID     string
	CreatedAt time.Time
	RunMeta
	Scored  int
	Skipped int
	// MeanOKS is nil when no pair was scored
	MeanOKS *float64
}

// PairRecord is a stored pair result
type PairRecord struct {
	Index     int
	Reference string
	Candidate string
	// OKS is nil for skipped pairs
	OKS       *float64
	Area      float64
	Skip      string
	Error     string
}

// Store keeps evaluation run history in SQLite
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database and runs migrations
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the summary of a run and returns the new run ID
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, sum evaluate.Summary) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var mean sql.NullFloat64
	if m, ok := sum.Mean(); ok {
		mean = sql.NullFloat64{Float64: m, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, reference_dir, candidate_dir, model, sigma_preset, scored, skipped, mean_oks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, now.Format(timeLayout), meta.ReferenceDir, meta.CandidateDir,
		meta.Model, meta.SigmaPreset, sum.Scored, sum.Skipped, mean,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pairs (run_id, idx, reference, candidate, oks, area, skip_reason, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare pair: %w", err)
	}
	defer stmt.Close()

	for _, r := range sum.Results {
		var oks sql.NullFloat64
		var skip, errText sql.NullString

		if r.Scored() {
			oks = sql.NullFloat64{Float64: r.OKS, Valid: true}
		} else {
			skip = sql.NullString{String: r.Skip.String(), Valid: true}
		}
		if r.Err != nil {
			errText = sql.NullString{String: r.Err.Error(), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, id, r.Index, r.Reference, r.Candidate,
			oks, r.Area, skip, errText); err != nil {
			return "", fmt.Errorf("insert pair %s: %w", r.Reference, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	return id, nil
}

// Runs returns all stored runs, newest first
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, reference_dir, candidate_dir, model, sigma_preset, scored, skipped, mean_oks
		 FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec     RunRecord
			created string
			model   sql.NullString
			mean    sql.NullFloat64
		)
		if err := rows.Scan(&rec.RunID, &created, &rec.ReferenceDir, &rec.CandidateDir,
			&model, &rec.SigmaPreset, &rec.Scored, &rec.Skipped, &mean); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		rec.Model = model.String
		if mean.Valid {
			m := mean.Float64
			rec.MeanOKS = &m
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Pairs returns the pair results of a run in reference order
func (s *Store) Pairs(ctx context.Context, runID string) ([]PairRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, reference, candidate, oks, area, skip_reason, error
		 FROM pairs WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var out []PairRecord
	for rows.Next() {
		var (
			rec             PairRecord
			cand, skip, msg sql.NullString
			oks             sql.NullFloat64
		)
		if err := rows.Scan(&rec.Index, &rec.Reference, &cand, &oks, &rec.Area, &skip, &msg); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		rec.Candidate = cand.String
		rec.Skip = skip.String
		rec.Error = msg.String
		if oks.Valid {
			v := oks.Float64
			rec.OKS = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
