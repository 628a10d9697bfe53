// Package persistence provides SQLite-based storage for sketch sessions and
// their idea trajectories.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mindbike/internal/sketch"
)

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// SessionInfo describes one stored session.
type SessionInfo struct {
	ID        string    `db:"id" json:"id"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	Seed      int64     `db:"seed" json:"seed"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	Analyzer  string    `db:"analyzer" json:"analyzer"`
	Ideas     int       `db:"ideas" json:"ideas"`
}

type ideaRow struct {
	Idx      int     `db:"idx"`
	Text     string  `db:"text"`
	Intent   string  `db:"intent"`
	X        float64 `db:"x"`
	Y        float64 `db:"y"`
	Distance float64 `db:"distance"`
	Frame    int64   `db:"frame"`
}

// Open opens or creates a SQLite database at the given path.
// Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		seed INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		analyzer TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ideas (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		intent TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		distance REAL NOT NULL,
		frame INTEGER NOT NULL,
		PRIMARY KEY (session_id, idx)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartSession records a new session.
func (db *DB) StartSession(ctx context.Context, info SessionInfo) error {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	_, err := db.conn.NamedExecContext(ctx, `INSERT INTO sessions
		(id, started_at, seed, width, height, analyzer)
		VALUES (:id, :started_at, :seed, :width, :height, :analyzer)`, info)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", info.ID, err)
	}
	slog.Info("session started", "id", info.ID, "seed", info.Seed)
	return nil
}

// SaveIdea appends one committed idea to a session's trajectory.
func (db *DB) SaveIdea(ctx context.Context, sessionID string, r sketch.IdeaRecord) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO ideas
		(session_id, idx, text, intent, x, y, distance, frame)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.Index, r.Text, r.Intent, r.X, r.Y, r.Distance, int64(r.Frame),
	)
	if err != nil {
		return fmt.Errorf("insert idea %d: %w", r.Index, err)
	}
	return nil
}

// LoadIdeas returns a session's trajectory in commit order.
func (db *DB) LoadIdeas(ctx context.Context, sessionID string) ([]sketch.IdeaRecord, error) {
	var rows []ideaRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT idx, text, intent, x, y, distance, frame
		FROM ideas WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select ideas: %w", err)
	}

	out := make([]sketch.IdeaRecord, len(rows))
	for i, r := range rows {
		out[i] = sketch.IdeaRecord{
			Index:    r.Idx,
			Text:     r.Text,
			Intent:   r.Intent,
			X:        r.X,
			Y:        r.Y,
			Distance: r.Distance,
			Frame:    uint64(r.Frame),
		}
	}
	return out, nil
}

// GetSession returns one session with its idea count.
func (db *DB) GetSession(ctx context.Context, id string) (SessionInfo, error) {
	var info SessionInfo
	err := db.conn.GetContext(ctx, &info, `SELECT s.id, s.started_at, s.seed, s.width, s.height, s.analyzer,
		(SELECT COUNT(*) FROM ideas i WHERE i.session_id = s.id) AS ideas
		FROM sessions s WHERE s.id = ?`, id)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return info, nil
}

// RecentSessions returns the most recent sessions, newest first.
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	var out []SessionInfo
	err := db.conn.SelectContext(ctx, &out, `SELECT s.id, s.started_at, s.seed, s.width, s.height, s.analyzer,
		(SELECT COUNT(*) FROM ideas i WHERE i.session_id = s.id) AS ideas
		FROM sessions s ORDER BY s.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return out, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
