package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AddMapping records a provenance fact: sourceID fed nodeID through the
// given mechanism. The node's source_ids list is appended inside the same
// transaction. One source may feed many nodes and one node may cite many
// sources.
func (s *Store) AddMapping(m *SourceNodeMapping) error {
	if m.MappingType == "" {
		return &ValidationError{Field: "mapping_type", Value: ""}
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return &ValidationError{Field: "confidence", Value: fmt.Sprintf("%g", m.Confidence)}
	}
	db, err := s.conn()
	if err != nil {
		return err
	}

	sourceRow, err := s.resolveRowID(db, m.SourceID)
	if err != nil {
		return err
	}
	nodeRow, err := s.resolveRowID(db, m.NodeID)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return &BackendError{Op: "add_mapping", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO source_node_mapping (source_id, node_id, mapping_type, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sourceRow, nodeRow, m.MappingType, m.Confidence, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert mapping %s -> %s: %w", m.SourceID, m.NodeID, err)
	}

	// Append the source to the node's denormalized source_ids list
	var sourceIDsJSON string
	err = tx.QueryRow(`SELECT source_ids FROM analytical_nodes WHERE id = ?`, nodeRow).Scan(&sourceIDsJSON)
	if err == nil {
		var ids []string
		json.Unmarshal([]byte(sourceIDsJSON), &ids)
		if !containsString(ids, m.SourceID) {
			ids = append(ids, m.SourceID)
			updated, _ := json.Marshal(ids)
			if _, err := tx.Exec(`UPDATE analytical_nodes SET source_ids = ? WHERE id = ?`, string(updated), nodeRow); err != nil {
				return fmt.Errorf("update source_ids for %s: %w", m.NodeID, err)
			}
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("read source_ids for %s: %w", m.NodeID, err)
	}

	if err := tx.Commit(); err != nil {
		return &BackendError{Op: "add_mapping", Err: err}
	}
	return nil
}

// GetSourceChain reconstructs the derivation chain of one raw source: every
// analytical node it fed, each annotated with its live counters. A node
// with no mapped sources elsewhere is unremarkable here; a source id that
// does not resolve at all is a NotFoundError.
func (s *Store) GetSourceChain(sourceID string) (*SourceChain, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var src SourceInfo
	var size sql.NullInt64
	err = db.QueryRow(`
		SELECT material_id, filename, title, file_size_bytes
		FROM materials WHERE material_id = ?
	`, sourceID).Scan(&src.MaterialID, &src.Filename, &src.Title, &size)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "source", ID: sourceID}
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", sourceID, err)
	}
	if size.Valid {
		v := size.Int64
		src.FileSizeBytes = &v
	}

	rows, err := db.Query(`
		SELECT m.material_id, m.title, m.layer,
		       COALESCE(an.backlinks_count, 0), COALESCE(an.outgoing_edges_count, 0)
		FROM source_node_mapping snm
		JOIN materials st ON snm.source_id = st.id
		JOIN materials m ON snm.node_id = m.id
		LEFT JOIN analytical_nodes an ON m.id = an.id
		WHERE st.material_id = ?
		ORDER BY snm.id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("source chain of %s: %w", sourceID, err)
	}
	defer rows.Close()

	chain := &SourceChain{Source: src, DerivedNodes: []NodeRef{}}
	for rows.Next() {
		var n NodeRef
		var layer sql.NullString
		if err := rows.Scan(&n.MaterialID, &n.Title, &layer, &n.BacklinksCount, &n.OutgoingEdgesCount); err != nil {
			continue
		}
		n.Layer = layer.String
		chain.DerivedNodes = append(chain.DerivedNodes, n)
		chain.TotalBacklinks += n.BacklinksCount
	}
	chain.NodesCount = len(chain.DerivedNodes)
	return chain, rows.Err()
}

// GetNodeSources is the inverse query: the evidence behind one node. An
// empty list is a valid answer, not an error.
func (s *Store) GetNodeSources(nodeID string) ([]SourceRef, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT st.material_id, st.filename, st.title, snm.mapping_type, snm.confidence
		FROM source_node_mapping snm
		JOIN materials n ON snm.node_id = n.id
		JOIN materials st ON snm.source_id = st.id
		WHERE n.material_id = ?
		ORDER BY snm.id
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("sources of %s: %w", nodeID, err)
	}
	defer rows.Close()

	refs := []SourceRef{}
	for rows.Next() {
		var r SourceRef
		if err := rows.Scan(&r.MaterialID, &r.Filename, &r.Title, &r.MappingType, &r.Confidence); err != nil {
			continue
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
