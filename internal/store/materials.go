package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/portal-dtwins/knowledge-gate/internal/logging"
)

// AddMaterial inserts a material, its denormalized counter row (for
// analytical nodes), its full-text row and its vector index row.
// material_id must be unique; category and status must be inside their
// closed sets.
func (s *Store) AddMaterial(m *Material) error {
	if m.MaterialID == "" {
		return &ValidationError{Field: "material_id", Value: ""}
	}
	if !categories[m.Category] {
		return &ValidationError{Field: "category", Value: string(m.Category)}
	}
	if !statuses[m.Status] {
		return &ValidationError{Field: "status", Value: string(m.Status)}
	}
	if m.Version == "" {
		m.Version = "1.0.0"
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	db, err := s.conn()
	if err != nil {
		return err
	}

	metadataJSON, _ := json.Marshal(m.Metadata)
	if m.Metadata == nil {
		metadataJSON = nil
	}
	tagsJSON, _ := json.Marshal(m.Tags)
	if m.Tags == nil {
		tagsJSON = nil
	}

	tx, err := db.Begin()
	if err != nil {
		return &BackendError{Op: "add_material", Err: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO materials (material_id, filename, title, category, status,
			file_path, file_size_bytes, layer, metadata, tags, version,
			embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.MaterialID, m.Filename, m.Title, string(m.Category), string(m.Status),
		m.FilePath, m.FileSizeBytes, nullableString(m.Layer), metadataJSON,
		tagsJSON, m.Version, encodeEmbedding(m.Embedding), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert material %s: %w", m.MaterialID, err)
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert material %s: %w", m.MaterialID, err)
	}

	if m.Category == CategoryAnalyticalNodes {
		if _, err := tx.Exec(`INSERT INTO analytical_nodes (id) VALUES (?)`, rowid); err != nil {
			return fmt.Errorf("insert node counters for %s: %w", m.MaterialID, err)
		}
	}

	// FTS row creation may fail when FTS5 is not compiled in; lexical search
	// then falls back to scanning.
	tx.Exec(`INSERT INTO materials_fts (material_id, content) VALUES (?, ?)`,
		m.MaterialID, searchText(m))

	if err := tx.Commit(); err != nil {
		return &BackendError{Op: "add_material", Err: err}
	}

	// The material is committed at this point; a vector index failure must
	// not surface as an add failure. Semantic search scans when the row is
	// missing.
	if s.vecUsable() && len(m.Embedding) > 0 {
		if err := s.upsertVecRow(db, rowid, m.MaterialID, encodeEmbedding(m.Embedding)); err != nil {
			logging.Debug("store", "vec index update skipped for %s: %v", m.MaterialID, err)
		}
	}

	return nil
}

// UpdateMaterial rewrites the mutable fields of an existing material.
// material_id itself is immutable once assigned.
func (s *Store) UpdateMaterial(m *Material) error {
	if !categories[m.Category] {
		return &ValidationError{Field: "category", Value: string(m.Category)}
	}
	if !statuses[m.Status] {
		return &ValidationError{Field: "status", Value: string(m.Status)}
	}
	db, err := s.conn()
	if err != nil {
		return err
	}

	rowid, err := s.resolveRowID(db, m.MaterialID)
	if err != nil {
		return err
	}

	metadataJSON, _ := json.Marshal(m.Metadata)
	if m.Metadata == nil {
		metadataJSON = nil
	}
	tagsJSON, _ := json.Marshal(m.Tags)
	if m.Tags == nil {
		tagsJSON = nil
	}
	m.UpdatedAt = time.Now().UTC()

	_, err = db.Exec(`
		UPDATE materials SET filename = ?, title = ?, category = ?, status = ?,
			file_path = ?, file_size_bytes = ?, layer = ?, metadata = ?,
			tags = ?, version = ?, embedding = ?, updated_at = ?
		WHERE material_id = ?
	`,
		m.Filename, m.Title, string(m.Category), string(m.Status), m.FilePath,
		m.FileSizeBytes, nullableString(m.Layer), metadataJSON, tagsJSON,
		m.Version, encodeEmbedding(m.Embedding), m.UpdatedAt, m.MaterialID,
	)
	if err != nil {
		return fmt.Errorf("update material %s: %w", m.MaterialID, err)
	}

	db.Exec(`DELETE FROM materials_fts WHERE material_id = ?`, m.MaterialID)
	db.Exec(`INSERT INTO materials_fts (material_id, content) VALUES (?, ?)`,
		m.MaterialID, searchText(m))

	if s.vecUsable() && len(m.Embedding) > 0 {
		if err := s.upsertVecRow(db, rowid, m.MaterialID, encodeEmbedding(m.Embedding)); err != nil {
			logging.Debug("store", "vec index update skipped for %s: %v", m.MaterialID, err)
		}
	}

	return nil
}

// SetSearchContent replaces the indexed full-text body of a material, for
// callers that index document content beyond title and tags. The rewrite is
// best-effort like every other FTS touchpoint: without FTS5 the body is
// dropped and lexical search keeps scanning.
func (s *Store) SetSearchContent(materialID, content string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.resolveRowID(db, materialID); err != nil {
		return err
	}
	db.Exec(`DELETE FROM materials_fts WHERE material_id = ?`, materialID)
	if _, err := db.Exec(`INSERT INTO materials_fts (material_id, content) VALUES (?, ?)`,
		materialID, content); err != nil {
		logging.Debug("store", "fts content update skipped for %s: %v", materialID, err)
	}
	return nil
}

// GetMaterial retrieves a material by its external id, joined with the
// analytical-node counters when present. Returns (nil, nil) when the id is
// unknown: absence is not an error here.
func (s *Store) GetMaterial(materialID string) (*Material, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(`
		SELECT m.material_id, m.filename, m.title, m.category, m.status,
		       m.file_path, m.file_size_bytes, m.layer, m.metadata, m.tags,
		       m.version, m.embedding, m.created_at, m.updated_at,
		       an.backlinks_count, an.outgoing_edges_count, an.source_ids
		FROM materials m
		LEFT JOIN analytical_nodes an ON m.id = an.id
		WHERE m.material_id = ?
	`, materialID)

	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get material %s: %w", materialID, err)
	}
	return m, nil
}

// ListMaterials returns summaries matching the filter, most recently created
// first. Filters are conjunctive; Limit defaults to DefaultListLimit.
func (s *Store) ListMaterials(f ListFilter) ([]MaterialSummary, error) {
	if f.Category != "" && !categories[f.Category] {
		return nil, &ValidationError{Field: "category", Value: string(f.Category)}
	}
	if f.Status != "" && !statuses[f.Status] {
		return nil, &ValidationError{Field: "status", Value: string(f.Status)}
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Layer != "" {
		conditions = append(conditions, "layer = ?")
		args = append(args, f.Layer)
	}
	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	// id DESC keeps ordering stable when creation timestamps collide
	rows, err := db.Query(`
		SELECT material_id, filename, title, category, status, layer,
		       file_size_bytes, version, created_at, updated_at
		FROM materials
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var out []MaterialSummary
	for rows.Next() {
		var ms MaterialSummary
		var layer sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&ms.MaterialID, &ms.Filename, &ms.Title, &ms.Category,
			&ms.Status, &layer, &size, &ms.Version, &ms.CreatedAt, &ms.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list materials: %w", err)
		}
		ms.Layer = layer.String
		if size.Valid {
			v := size.Int64
			ms.FileSizeBytes = &v
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// resolveRowID maps an external material id to the internal rowid
func (s *Store) resolveRowID(db *sql.DB, materialID string) (int64, error) {
	var rowid int64
	err := db.QueryRow(`SELECT id FROM materials WHERE material_id = ?`, materialID).Scan(&rowid)
	if err == sql.ErrNoRows {
		return 0, &NotFoundError{Kind: "material", ID: materialID}
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", materialID, err)
	}
	return rowid, nil
}

func (s *Store) vecUsable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vecAvailable && s.vecReady
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (*Material, error) {
	var m Material
	var size sql.NullInt64
	var layer sql.NullString
	var metadataJSON, tagsJSON, embJSON []byte
	var backlinks, outgoing sql.NullInt64
	var sourceIDs sql.NullString

	err := row.Scan(&m.MaterialID, &m.Filename, &m.Title, &m.Category, &m.Status,
		&m.FilePath, &size, &layer, &metadataJSON, &tagsJSON, &m.Version,
		&embJSON, &m.CreatedAt, &m.UpdatedAt, &backlinks, &outgoing, &sourceIDs)
	if err != nil {
		return nil, err
	}

	if size.Valid {
		v := size.Int64
		m.FileSizeBytes = &v
	}
	m.Layer = layer.String
	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &m.Metadata)
	}
	if len(tagsJSON) > 0 {
		json.Unmarshal(tagsJSON, &m.Tags)
	}
	m.Embedding = decodeEmbedding(embJSON)
	if backlinks.Valid {
		v := int(backlinks.Int64)
		m.BacklinksCount = &v
	}
	if outgoing.Valid {
		v := int(outgoing.Int64)
		m.OutgoingEdgesCount = &v
	}
	if sourceIDs.Valid && sourceIDs.String != "" {
		json.Unmarshal([]byte(sourceIDs.String), &m.SourceIDs)
	}
	return &m, nil
}

// searchText builds the default full-text body of a material
func searchText(m *Material) string {
	parts := []string{m.Title, m.Filename}
	if m.Layer != "" {
		parts = append(parts, m.Layer)
	}
	parts = append(parts, m.Tags...)
	return strings.Join(parts, " ")
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
