package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/portal-dtwins/knowledge-gate/internal/logging"
)

func init() {
	sqlite_vec.Auto() // registers the vec0 virtual table with go-sqlite3
}

// Store is the single source of truth for materials, edges and provenance
// mappings. One logical connection per instance, lazily established on first
// use and reopened transparently after Close. Queries are read-mostly and
// safe to issue concurrently.
type Store struct {
	path string
	dim  int // embedding dimension fixed per deployment

	mu           sync.Mutex
	db           *sql.DB
	migrated     bool
	vecAvailable bool
	vecReady     bool // material_vec created (needs at least one embedding or explicit init)
}

// Open creates a store handle for the database at path. No connection is
// made until the first operation.
func Open(path string, embeddingDim int) *Store {
	if embeddingDim <= 0 {
		embeddingDim = 1536
	}
	return &Store{path: path, dim: embeddingDim}
}

// conn returns the live database handle, connecting and migrating on first
// use and reconnecting if the handle was closed.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Ping(); err == nil {
			return s.db, nil
		}
		s.db.Close()
		s.db = nil
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &BackendError{Op: "connect", Err: err}
		}
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &BackendError{Op: "connect", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &BackendError{Op: "connect", Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, &BackendError{Op: "connect", Err: err}
	}

	s.db = db

	if !s.migrated {
		if err := s.migrate(db); err != nil {
			db.Close()
			s.db = nil
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.migrated = true
	}

	// Probe for the sqlite-vec extension; absence degrades vector search to
	// a Go-side scan.
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		logging.Debug("store", "sqlite-vec not available, semantic search will full-scan: %v", err)
		s.vecAvailable = false
	} else {
		s.vecAvailable = true
		if !s.vecReady {
			if err := s.initVecTable(db); err != nil {
				logging.Debug("store", "vec init warning: %v", err)
			}
		}
	}

	return db, nil
}

// Close closes the connection. The store remains usable; the next operation
// reconnects.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// migrate creates the schema. Idempotent; tracked by schema_version.
func (s *Store) migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Materials: source documents and derived analytical nodes
	CREATE TABLE IF NOT EXISTS materials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		material_id TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size_bytes INTEGER,
		layer TEXT,
		metadata TEXT,
		tags TEXT,
		version TEXT NOT NULL DEFAULT '1.0.0',
		embedding BLOB,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_materials_category ON materials(category);
	CREATE INDEX IF NOT EXISTS idx_materials_status ON materials(status);
	CREATE INDEX IF NOT EXISTS idx_materials_layer ON materials(layer);
	CREATE INDEX IF NOT EXISTS idx_materials_created ON materials(created_at);

	-- Denormalized per-node counters, maintained in the same transaction
	-- that mutates edges and mappings
	CREATE TABLE IF NOT EXISTS analytical_nodes (
		id INTEGER PRIMARY KEY,
		backlinks_count INTEGER NOT NULL DEFAULT 0,
		outgoing_edges_count INTEGER NOT NULL DEFAULT 0,
		source_ids TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (id) REFERENCES materials(id) ON DELETE CASCADE
	);

	-- Topical reference links between materials
	CREATE TABLE IF NOT EXISTS material_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_material_id INTEGER NOT NULL,
		target_material_id INTEGER NOT NULL,
		edge_type TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (source_material_id) REFERENCES materials(id) ON DELETE CASCADE,
		FOREIGN KEY (target_material_id) REFERENCES materials(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON material_edges(source_material_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON material_edges(target_material_id);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON material_edges(edge_type);

	-- Provenance: which raw sources fed which analytical nodes.
	-- Kept separate from material_edges; the two relations answer different
	-- questions and are never unified.
	CREATE TABLE IF NOT EXISTS source_node_mapping (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL,
		node_id INTEGER NOT NULL,
		mapping_type TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (source_id) REFERENCES materials(id) ON DELETE CASCADE,
		FOREIGN KEY (node_id) REFERENCES materials(id) ON DELETE CASCADE,
		UNIQUE(source_id, node_id, mapping_type)
	);

	CREATE INDEX IF NOT EXISTS idx_snm_source ON source_node_mapping(source_id);
	CREATE INDEX IF NOT EXISTS idx_snm_node ON source_node_mapping(node_id);

	-- Append-only operation log
	CREATE TABLE IF NOT EXISTS agent_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		params TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		affected_materials TEXT,
		session_id TEXT,
		duration_ms INTEGER,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ops_session ON agent_operations(session_id);

	-- Per-category aggregate view backing GetStatistics
	CREATE VIEW IF NOT EXISTS v_category_stats AS
		SELECT category,
		       COUNT(*) AS count,
		       SUM(COALESCE(file_size_bytes, 0)) AS total_bytes,
		       MAX(updated_at) AS last_update
		FROM materials
		GROUP BY category;

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// FTS5 index over material text. mattn/go-sqlite3 only compiles FTS5
	// under the sqlite_fts5 build tag; without it this create fails and
	// lexical search falls back to a Go-side scan.
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS materials_fts USING fts5(
			material_id UNINDEXED,
			content
		)
	`)
	if err != nil {
		logging.Debug("store", "FTS5 unavailable, rebuild with -tags sqlite_fts5 for indexed search: %v", err)
	}

	return nil
}

// initVecTable creates the material_vec KNN index for the configured
// embedding dimension and backfills stored embeddings. Uses materials.id as
// the vec0 rowid for stable integer keying.
func (s *Store) initVecTable(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS material_vec USING vec0(
			embedding float[%d],
			+material_id TEXT
		)
	`, s.dim))
	if err != nil {
		return fmt.Errorf("create material_vec(float[%d]): %w", s.dim, err)
	}
	s.vecReady = true

	rows, err := db.Query(`
		SELECT m.id, m.material_id, m.embedding
		FROM materials m
		LEFT JOIN material_vec v ON v.rowid = m.id
		WHERE m.embedding IS NOT NULL AND v.rowid IS NULL
	`)
	if err != nil {
		return nil // backfill failure is non-fatal
	}
	defer rows.Close()

	type pending struct {
		rowid      int64
		materialID string
		emb        []byte
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if rows.Scan(&p.rowid, &p.materialID, &p.emb) == nil {
			todo = append(todo, p)
		}
	}

	var count int
	for _, p := range todo {
		if err := s.upsertVecRow(db, p.rowid, p.materialID, p.emb); err == nil {
			count++
		}
	}
	if count > 0 {
		logging.Debug("store", "vec backfill: indexed %d materials (dim=%d)", count, s.dim)
	}
	return nil
}
