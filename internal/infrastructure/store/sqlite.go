package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scentmatch/backend/internal/domain"
)

// SQLiteStore persists run history, pricing decisions and audit events in a
// local SQLite database. It implements domain.HistoryRepository.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS analysis_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			merchant_file TEXT,
			competitors TEXT,
			summary TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			product_name TEXT NOT NULL,
			old_status TEXT,
			new_status TEXT,
			reason TEXT,
			decided_by TEXT DEFAULT 'user'
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			page TEXT,
			event_type TEXT NOT NULL,
			details TEXT,
			product_name TEXT
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores one analysis run summary
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.RunRecord) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	ts := run.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_history (run_id, timestamp, merchant_file, competitors, summary) VALUES (?,?,?,?,?)`,
		run.ID, ts.UTC().Format(time.RFC3339), run.MerchantFile, strings.Join(run.Competitors, ","), string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, timestamp, merchant_file, competitors, summary FROM analysis_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var run domain.RunRecord
		var ts, competitors, summary string
		if err := rows.Scan(&run.ID, &ts, &run.MerchantFile, &competitors, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Timestamp, _ = time.Parse(time.RFC3339, ts)
		if competitors != "" {
			run.Competitors = strings.Split(competitors, ",")
		}
		if summary != "" {
			_ = json.Unmarshal([]byte(summary), &run.Summary)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LogDecision stores one audited status change
func (s *SQLiteStore) LogDecision(ctx context.Context, d domain.DecisionRecord) error {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	decidedBy := d.DecidedBy
	if decidedBy == "" {
		decidedBy = "user"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (timestamp, product_name, old_status, new_status, reason, decided_by) VALUES (?,?,?,?,?,?)`,
		ts.UTC().Format(time.RFC3339), d.ProductName, d.OldStatus, d.NewStatus, d.Reason, decidedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to log decision: %w", err)
	}
	return nil
}

// ListDecisions returns recent decisions, optionally filtered by a product
// name fragment, newest first.
func (s *SQLiteStore) ListDecisions(ctx context.Context, productName string, limit int) ([]domain.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if productName != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT timestamp, product_name, old_status, new_status, reason, decided_by
			 FROM decisions WHERE product_name LIKE ? ORDER BY id DESC LIMIT ?`,
			"%"+productName+"%", limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT timestamp, product_name, old_status, new_status, reason, decided_by
			 FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.DecisionRecord
	for rows.Next() {
		var d domain.DecisionRecord
		var ts string
		if err := rows.Scan(&ts, &d.ProductName, &d.OldStatus, &d.NewStatus, &d.Reason, &d.DecidedBy); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Timestamp, _ = time.Parse(time.RFC3339, ts)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// LogEvent stores one audit-log entry
func (s *SQLiteStore) LogEvent(ctx context.Context, e domain.EventRecord) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (timestamp, page, event_type, details, product_name) VALUES (?,?,?,?,?)`,
		ts.UTC().Format(time.RFC3339), e.Page, e.EventType, e.Details, e.ProductName,
	)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// ListEvents returns recent audit events, optionally filtered by page,
// newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, page string, limit int) ([]domain.EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if page != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT timestamp, page, event_type, details, product_name
			 FROM events WHERE page = ? ORDER BY id DESC LIMIT ?`, page, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT timestamp, page, event_type, details, product_name
			 FROM events ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.EventRecord
	for rows.Next() {
		var e domain.EventRecord
		var ts string
		if err := rows.Scan(&ts, &e.Page, &e.EventType, &e.Details, &e.ProductName); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}
