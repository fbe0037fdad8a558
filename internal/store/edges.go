package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AddEdge inserts a directed, typed, weighted link between two existing
// materials and bumps the denormalized counters of any analytical-node
// endpoints inside the same transaction. Self-loops and parallel edges with
// distinct types are permitted.
func (s *Store) AddEdge(e *Edge) error {
	if e.EdgeType == "" {
		return &ValidationError{Field: "edge_type", Value: ""}
	}
	if e.Weight == 0 {
		e.Weight = 1.0
	}
	db, err := s.conn()
	if err != nil {
		return err
	}

	sourceRow, err := s.resolveRowID(db, e.SourceMaterialID)
	if err != nil {
		return err
	}
	targetRow, err := s.resolveRowID(db, e.TargetMaterialID)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return &BackendError{Op: "add_edge", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO material_edges (source_material_id, target_material_id, edge_type, weight, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sourceRow, targetRow, e.EdgeType, e.Weight, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert edge %s -> %s: %w", e.SourceMaterialID, e.TargetMaterialID, err)
	}

	// Counter rows exist only for analytical nodes; updates on other
	// categories match zero rows and are no-ops.
	if _, err := tx.Exec(`
		UPDATE analytical_nodes SET backlinks_count = backlinks_count + 1 WHERE id = ?
	`, targetRow); err != nil {
		return fmt.Errorf("bump backlinks for %s: %w", e.TargetMaterialID, err)
	}
	if _, err := tx.Exec(`
		UPDATE analytical_nodes SET outgoing_edges_count = outgoing_edges_count + 1 WHERE id = ?
	`, sourceRow); err != nil {
		return fmt.Errorf("bump outgoing edges for %s: %w", e.SourceMaterialID, err)
	}

	if err := tx.Commit(); err != nil {
		return &BackendError{Op: "add_edge", Err: err}
	}
	return nil
}

// GetNodeEdges returns the edges around a node, joined with each peer's
// title. An unknown node yields empty lists, not an error: absence of edges
// is a valid state distinct from absence of the node. Rows whose peer no
// longer resolves are omitted rather than failing the query.
func (s *Store) GetNodeEdges(nodeID string, direction Direction) (*EdgeSet, error) {
	switch direction {
	case DirectionIncoming, DirectionOutgoing, DirectionBoth:
	default:
		return nil, &ValidationError{Field: "direction", Value: string(direction)}
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	set := &EdgeSet{Incoming: []EdgeRef{}, Outgoing: []EdgeRef{}}

	if direction == DirectionOutgoing || direction == DirectionBoth {
		set.Outgoing, err = queryEdgeRefs(db, `
			SELECT t.material_id, t.title, me.edge_type, me.weight
			FROM material_edges me
			JOIN materials st ON me.source_material_id = st.id
			JOIN materials t ON me.target_material_id = t.id
			WHERE st.material_id = ?
			ORDER BY me.id
		`, nodeID)
		if err != nil {
			return nil, fmt.Errorf("outgoing edges of %s: %w", nodeID, err)
		}
	}

	if direction == DirectionIncoming || direction == DirectionBoth {
		set.Incoming, err = queryEdgeRefs(db, `
			SELECT st.material_id, st.title, me.edge_type, me.weight
			FROM material_edges me
			JOIN materials st ON me.source_material_id = st.id
			JOIN materials t ON me.target_material_id = t.id
			WHERE t.material_id = ?
			ORDER BY me.id
		`, nodeID)
		if err != nil {
			return nil, fmt.Errorf("incoming edges of %s: %w", nodeID, err)
		}
	}

	return set, nil
}

func queryEdgeRefs(db *sql.DB, query, nodeID string) ([]EdgeRef, error) {
	rows, err := db.Query(query, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []EdgeRef{}
	for rows.Next() {
		var r EdgeRef
		if err := rows.Scan(&r.PeerID, &r.PeerTitle, &r.EdgeType, &r.Weight); err != nil {
			continue
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// CountEdges returns the total size of the edge relation
func (s *Store) CountEdges() (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM material_edges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}
