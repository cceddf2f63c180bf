// Package journal persists a history of finished simulations in SQLite.
//
// The journal is best-effort: callers log write failures and move on, so a
// broken database never changes what the lab shows.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/journal/migrations"
	"github.com/louisbranch/smartlab/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Outcome is how a simulation ended.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)

// DefaultListLimit and MaxListLimit bound ListRecent.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Record is one finished simulation.
type Record struct {
	ID            int64         `json:"id"`
	RequestID     string        `json:"request_id"`
	SessionID     string        `json:"session_id"`
	SubstanceIDs  [2]string     `json:"substance_ids"`
	Concentration string        `json:"concentration"`
	UseIndicator  bool          `json:"use_indicator"`
	Outcome       Outcome       `json:"outcome"`
	Equation      string        `json:"equation,omitempty"`
	HexColor      string        `json:"hex_color,omitempty"`
	ErrorCode     string        `json:"error_code,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store is a SQLite-backed journal.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens (creating if needed) the journal at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutSimulation appends rec. A zero CreatedAt is stamped with the store
// clock. A nil store discards the record.
func (s *Store) PutSimulation(ctx context.Context, rec Record) error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	if rec.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO lab_simulations (
    request_id, session_id, first_substance_id, second_substance_id,
    concentration, use_indicator, outcome, equation, hex_color,
    error_code, duration_ms, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.SessionID,
		rec.SubstanceIDs[0],
		rec.SubstanceIDs[1],
		rec.Concentration,
		boolToInt(rec.UseIndicator),
		string(rec.Outcome),
		rec.Equation,
		rec.HexColor,
		rec.ErrorCode,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put simulation: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.sqlDB == nil {
		return []Record{}, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, request_id, session_id, first_substance_id, second_substance_id,
       concentration, use_indicator, outcome, equation, hex_color,
       error_code, duration_ms, created_at
FROM lab_simulations
ORDER BY created_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec          Record
			useIndicator int64
			outcome      string
			durationMS   int64
			createdAt    int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.SessionID,
			&rec.SubstanceIDs[0],
			&rec.SubstanceIDs[1],
			&rec.Concentration,
			&useIndicator,
			&outcome,
			&rec.Equation,
			&rec.HexColor,
			&rec.ErrorCode,
			&durationMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan simulation row: %w", err)
		}
		rec.UseIndicator = useIndicator != 0
		rec.Outcome = Outcome(outcome)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation rows: %w", err)
	}
	return records, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
