package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no generation has the given ID.
var ErrNotFound = errors.New("generation not found")

// Generation is a single QR code produced by the application.
type Generation struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Level     string `json:"level"`
	Version   int    `json:"version"`
	Modules   int    `json:"modules"`
	Scale     int    `json:"scale"`
	Pixels    int    `json:"pixels"`
	Bytes     int    `json:"bytes"`
	Source    string `json:"source"` // cli, ui or api
	Path      string `json:"path,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// HistoryStore manages SQLite storage for generated codes.
type HistoryStore struct {
	db *sql.DB
}

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    level TEXT NOT NULL,
    version INTEGER NOT NULL,
    modules INTEGER NOT NULL,
    scale INTEGER NOT NULL,
    pixels INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    path TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
`

const createFTSTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS generations_fts USING fts5(
    text,
    content='generations',
    content_rowid='rowid'
);
`

const createFTSTrigger = `
CREATE TRIGGER IF NOT EXISTS generations_ai AFTER INSERT ON generations BEGIN
    INSERT INTO generations_fts(rowid, text) VALUES (new.rowid, new.text);
END;
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
`

// NewHistoryStore opens (or creates) the SQLite database at dbPath,
// initialises the schema (generations table, FTS5 virtual table, sync
// trigger), and returns a ready-to-use HistoryStore.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{
		createGenerationsTable,
		createFTSTable,
		createFTSTrigger,
		createIndexes,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &HistoryStore{db: db}, nil
}

// Save inserts g, assigning an ID and timestamp when they are unset.
func (s *HistoryStore) Save(g *Generation) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().UnixMilli()
	}

	const query = `
		INSERT INTO generations
			(id, text, level, version, modules, scale, pixels, bytes, source, path, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		g.ID,
		g.Text,
		g.Level,
		g.Version,
		g.Modules,
		g.Scale,
		g.Pixels,
		g.Bytes,
		g.Source,
		g.Path,
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save generation: %w", err)
	}
	return nil
}

// Get returns the generation with the given ID.
func (s *HistoryStore) Get(id string) (*Generation, error) {
	const query = `
		SELECT id, text, level, version, modules, scale, pixels, bytes, source, path, created_at
		FROM generations
		WHERE id = ?
	`

	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	defer rows.Close()

	gens, err := scanGenerations(rows)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, ErrNotFound
	}
	return &gens[0], nil
}

// Recent returns generations newest first. Use limit and offset for
// pagination.
func (s *HistoryStore) Recent(limit, offset int) ([]Generation, error) {
	const query = `
		SELECT id, text, level, version, modules, scale, pixels, bytes, source, path, created_at
		FROM generations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("recent generations: %w", err)
	}
	defer rows.Close()

	return scanGenerations(rows)
}

// Search performs a full-text search over generated text using the FTS5
// index. Results are ranked by relevance.
func (s *HistoryStore) Search(query string, limit int) ([]Generation, error) {
	// Escape any double quotes in the query to avoid FTS5 syntax errors.
	escaped := strings.ReplaceAll(query, `"`, `""`)
	ftsQuery := fmt.Sprintf(`"%s"`, escaped)

	const q = `
		SELECT g.id, g.text, g.level, g.version, g.modules, g.scale, g.pixels,
		       g.bytes, g.source, g.path, g.created_at
		FROM generations g
		JOIN generations_fts fts ON g.rowid = fts.rowid
		WHERE generations_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?
	`

	rows, err := s.db.Query(q, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search generations: %w", err)
	}
	defer rows.Close()

	return scanGenerations(rows)
}

// Count returns the number of stored generations.
func (s *HistoryStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// --- helpers ----------------------------------------------------------------

func scanGenerations(rows *sql.Rows) ([]Generation, error) {
	var gens []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(
			&g.ID, &g.Text, &g.Level, &g.Version, &g.Modules,
			&g.Scale, &g.Pixels, &g.Bytes, &g.Source, &g.Path,
			&g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation row: %w", err)
		}
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation rows: %w", err)
	}
	return gens, nil
}
