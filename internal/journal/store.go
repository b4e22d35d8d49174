package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"thepipe/internal/config"
	"thepipe/internal/geometry"
)

// Store is the SQLite-backed journal.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal at cfg.Journal.Path and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.Journal.Path)
}

// OpenPath opens the journal database at path.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Record appends e and returns its ID. A zero CreatedAt is stamped now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Pipe) == "" {
		return 0, errors.New("journal entry requires a pipe")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	kinds, err := encodeKinds(e.Kinds)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO events (
            pipe, direction, push_id, session_id, outcome,
            node_count, kinds_json, payload_bytes, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Pipe,
		string(e.Direction),
		nullableString(e.PushID),
		nullableString(e.SessionID),
		e.Outcome,
		e.Nodes,
		kinds,
		e.PayloadBytes,
		nullableString(e.Error),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. An empty pipe matches all.
func (s *Store) Recent(ctx context.Context, pipe string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + entryColumns + ` FROM events`
	args := []any{}
	if pipe != "" {
		query += ` WHERE pipe = ?`
		args = append(args, pipe)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats counts entries per direction and outcome.
func (s *Store) Stats(ctx context.Context) (map[Direction]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT direction, outcome, COUNT(1) FROM events GROUP BY direction, outcome`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Direction]map[string]int)
	for rows.Next() {
		var (
			dir     Direction
			outcome string
			count   int
		)
		if err := rows.Scan(&dir, &outcome, &count); err != nil {
			return nil, err
		}
		if stats[dir] == nil {
			stats[dir] = make(map[string]int)
		}
		stats[dir][outcome] = count
	}
	return stats, rows.Err()
}

// Prune deletes entries older than cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

// PreviousReceive returns the objects the last receive on pipe created, in
// receive order.
func (s *Store) PreviousReceive(ctx context.Context, pipe string) ([]ObjectRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, object_id FROM receive_objects WHERE pipe = ? ORDER BY position`, pipe)
	if err != nil {
		return nil, fmt.Errorf("query previous receive: %w", err)
	}
	defer rows.Close()

	var refs []ObjectRef
	for rows.Next() {
		var (
			kind int
			id   string
		)
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, err
		}
		refs = append(refs, ObjectRef{Kind: geometry.Kind(kind), ID: id})
	}
	return refs, rows.Err()
}

// ReplaceReceive stores refs as the latest receive on pipe.
func (s *Store) ReplaceReceive(ctx context.Context, pipe, sessionID string, refs []ObjectRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receive tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM receive_objects WHERE pipe = ?`, pipe); err != nil {
		return fmt.Errorf("clear previous receive: %w", err)
	}
	for i, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO receive_objects (pipe, position, kind, object_id, session_id) VALUES (?, ?, ?, ?, ?)`,
			pipe, i, int(ref.Kind), ref.ID, nullableString(sessionID),
		); err != nil {
			return fmt.Errorf("insert receive object: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receive: %w", err)
	}
	return nil
}

// CheckHealth returns diagnostic information about the journal database.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat journal database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("journal database path %q is a directory", s.path)
	}
	health.Exists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping journal database: %w", err)
	}
	health.Readable = true

	if health.SchemaVersion, err = s.SchemaVersion(connCtx); err != nil {
		health.Error = err.Error()
		return health, err
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM events").Scan(&health.TotalEntries); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count journal entries: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

const entryColumns = "id, pipe, direction, push_id, session_id, outcome, node_count, kinds_json, payload_bytes, error_message, created_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e         Entry
		direction string
		pushID    sql.NullString
		sessionID sql.NullString
		kinds     sql.NullString
		errMsg    sql.NullString
		created   string
	)
	if err := scanner.Scan(&e.ID, &e.Pipe, &direction, &pushID, &sessionID, &e.Outcome,
		&e.Nodes, &kinds, &e.PayloadBytes, &errMsg, &created); err != nil {
		return Entry{}, err
	}
	e.Direction = Direction(direction)
	e.PushID = pushID.String
	e.SessionID = sessionID.String
	e.Error = errMsg.String
	if kinds.Valid && kinds.String != "" {
		if err := json.Unmarshal([]byte(kinds.String), &e.Kinds); err != nil {
			return Entry{}, fmt.Errorf("decode kinds: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = ts
	}
	return e, nil
}

func encodeKinds(kinds map[string]int) (any, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(kinds)
	if err != nil {
		return nil, fmt.Errorf("encode kinds: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
