package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    model TEXT NOT NULL DEFAULT 'veo-3'
);

CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    job_id TEXT,
    prompt TEXT NOT NULL,
    model TEXT NOT NULL,
    mode TEXT NOT NULL,
    aspect_ratio TEXT,
    resolution TEXT,
    seconds INTEGER NOT NULL DEFAULT 0,
    audio INTEGER NOT NULL DEFAULT 0,
    tier TEXT,
    video_path TEXT,
    cost_usd TEXT NOT NULL DEFAULT '0',
    credits INTEGER NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS ledger (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    delta INTEGER NOT NULL,
    description TEXT NOT NULL,
    generation_id TEXT,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_generations_session_id ON generations(session_id);
CREATE INDEX IF NOT EXISTS idx_generations_timestamp ON generations(timestamp);
CREATE INDEX IF NOT EXISTS idx_generations_model ON generations(model);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON ledger(timestamp);
`

type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".vidgen", "sessions.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, created_at, updated_at, model)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.CreatedAt, sess.UpdatedAt, sess.Model)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, model
		 FROM sessions WHERE id = ?`, id)

	sess := &Session{}
	var name sql.NullString
	err := row.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Model)
	if err != nil {
		return nil, err
	}
	sess.Name = name.String
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at = ?, model = ? WHERE id = ?`,
		sess.Name, sess.UpdatedAt, sess.Model, sess.ID)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at, model
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var name sql.NullString
		if err := rows.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Model); err != nil {
			return nil, err
		}
		sess.Name = name.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) CreateGeneration(ctx context.Context, gen *Generation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, session_id, job_id, prompt, model, mode, aspect_ratio, resolution, seconds, audio, tier, video_path, cost_usd, credits, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.SessionID, nullString(gen.JobID), gen.Prompt, gen.Model, gen.Mode,
		nullString(gen.AspectRatio), nullString(gen.Resolution), gen.Seconds, boolToInt(gen.Audio),
		nullString(gen.Tier), nullString(gen.VideoPath), gen.CostUSD, gen.Credits, gen.Timestamp)
	return err
}

func (s *Store) ListGenerations(ctx context.Context, sessionID string) ([]*Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, job_id, prompt, model, mode, aspect_ratio, resolution, seconds, audio, tier, video_path, cost_usd, credits, timestamp
		 FROM generations WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []*Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

func scanGeneration(rows *sql.Rows) (*Generation, error) {
	gen := &Generation{}
	var jobID, aspect, resolution, tier, videoPath sql.NullString
	var audio int
	if err := rows.Scan(&gen.ID, &gen.SessionID, &jobID, &gen.Prompt, &gen.Model, &gen.Mode,
		&aspect, &resolution, &gen.Seconds, &audio, &tier, &videoPath,
		&gen.CostUSD, &gen.Credits, &gen.Timestamp); err != nil {
		return nil, err
	}
	gen.JobID = jobID.String
	gen.AspectRatio = aspect.String
	gen.Resolution = resolution.String
	gen.Tier = tier.String
	gen.VideoPath = videoPath.String
	gen.Audio = audio != 0
	return gen, nil
}

func (s *Store) CountGenerations(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generations WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// Ledger operations. All amounts are integer credits.

func (s *Store) AddLedgerEntry(ctx context.Context, entry *LedgerEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger (delta, description, generation_id, timestamp)
		 VALUES (?, ?, ?, ?)`,
		entry.Delta, entry.Description, nullString(entry.GenerationID), entry.Timestamp)
	return err
}

func (s *Store) Balance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger`).Scan(&balance)
	return balance, err
}

func (s *Store) ListLedger(ctx context.Context, limit int) ([]*LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, delta, description, generation_id, timestamp
		 FROM ledger ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		entry := &LedgerEntry{}
		var genID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Delta, &entry.Description, &genID, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.GenerationID = genID.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Spend summaries are computed from generations, not the ledger, so top-ups
// never show up as negative spend.

func (s *Store) GetTotalSpend(ctx context.Context) (*SpendSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COUNT(*) FROM generations`)

	var summary SpendSummary
	if err := row.Scan(&summary.TotalCredits, &summary.GenerationCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetSpendByDateRange(ctx context.Context, start, end time.Time) (*SpendSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COUNT(*)
		 FROM generations WHERE timestamp >= ? AND timestamp < ?`,
		start, end)

	var summary SpendSummary
	if err := row.Scan(&summary.TotalCredits, &summary.GenerationCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetSpendByModel(ctx context.Context) ([]ModelSpendSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, COALESCE(SUM(credits), 0), COUNT(*)
		 FROM generations GROUP BY model ORDER BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ModelSpendSummary
	for rows.Next() {
		var ms ModelSpendSummary
		if err := rows.Scan(&ms.Model, &ms.TotalCredits, &ms.GenerationCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ms)
	}
	return summaries, rows.Err()
}

func (s *Store) GetSessionSpend(ctx context.Context, sessionID string) (*SpendSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COUNT(*)
		 FROM generations WHERE session_id = ?`, sessionID)

	var summary SpendSummary
	if err := row.Scan(&summary.TotalCredits, &summary.GenerationCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func DefaultVideoDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".vidgen", "videos"), nil
}

func VideoDir(sessionID string) (string, error) {
	baseDir, err := DefaultVideoDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, sessionID), nil
}

func EnsureVideoDir(sessionID string) (string, error) {
	dir, err := VideoDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
