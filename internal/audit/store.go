// Package audit records emitted account snapshots in a SQLite
// journal. The journal is an output boundary like the CSV writer: it
// is written once per emission and never read back into the engine.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/paydirt/paydirt/internal/ledger"
	"github.com/paydirt/paydirt/internal/stream"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - UNIQUE constraint on (run_token, client)
const currentSchemaVersion = 1

// Store provides the SQLite-backed audit journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database at path. Applies required
// pragmas and migrations automatically; idempotent.
//
// The database is configured with:
//   - WAL mode so readers (ad-hoc queries) don't block the writer
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY from our own pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Recorder writes one run's emissions under a shared run token.
// Implements stream.Sink. Not safe for concurrent use; the stream
// emitter is the single caller.
type Recorder struct {
	store *Store
	run   string
	seq   int
}

// NewRecorder creates a sink journaling emissions under run.
func (s *Store) NewRecorder(run string) *Recorder {
	return &Recorder{store: s, run: run}
}

// Emit implements stream.Sink. The UNIQUE (run_token, client)
// constraint backs the exactly-once emission contract: a duplicate
// emission within one run fails loudly instead of silently stacking.
func (r *Recorder) Emit(snap ledger.Snapshot) error {
	r.seq++
	_, err := r.store.db.Exec(`
		INSERT INTO emissions (run_token, seq, client, available, held, total, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.run,
		r.seq,
		int64(snap.Client),
		snap.Available.String(),
		snap.Held.String(),
		snap.Total.String(),
		snap.Locked,
	)
	if err != nil {
		return fmt.Errorf("audit insert client %d: %w", snap.Client, err)
	}
	return nil
}

var _ stream.Sink = (*Recorder)(nil)

// Emission is one journaled snapshot row.
type Emission struct {
	Seq      int
	Snapshot ledger.Snapshot
}

// Emissions returns the journaled rows for run in emission order.
func (s *Store) Emissions(ctx context.Context, run string) ([]Emission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, client, available, held, total, locked
		FROM emissions
		WHERE run_token = ?
		ORDER BY seq`,
		run,
	)
	if err != nil {
		return nil, fmt.Errorf("audit query run %s: %w", run, err)
	}
	defer rows.Close()

	var out []Emission
	for rows.Next() {
		var (
			e         Emission
			client    int64
			available string
			held      string
			total     string
		)
		if err := rows.Scan(&e.Seq, &client, &available, &held, &total, &e.Snapshot.Locked); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		e.Snapshot.Client = ledger.ClientID(client)
		if e.Snapshot.Available, err = parseAmount(available); err != nil {
			return nil, err
		}
		if e.Snapshot.Held, err = parseAmount(held); err != nil {
			return nil, err
		}
		if e.Snapshot.Total, err = parseAmount(total); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Runs returns the distinct run tokens in the journal, oldest first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_token FROM emissions GROUP BY run_token ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("audit query runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, fmt.Errorf("audit scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("audit: bad stored amount %q: %w", s, err)
	}
	return d, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	// No incremental migrations yet; schema.sql is the v1 baseline.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
