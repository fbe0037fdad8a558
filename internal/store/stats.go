package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/portal-dtwins/knowledge-gate/internal/logging"
)

// GetGraphOverview computes corpus-wide graph counters. Repeated calls with
// no intervening writes return identical results.
func (s *Store) GetGraphOverview() (*GraphOverview, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	ov := &GraphOverview{ByLayer: map[string]int{}}

	err = db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM materials WHERE category = ?),
			(SELECT COUNT(*) FROM material_edges),
			(SELECT COALESCE(SUM(backlinks_count), 0) FROM analytical_nodes)
	`, string(CategoryAnalyticalNodes)).Scan(&ov.NodesCount, &ov.EdgesCount, &ov.TotalBacklinks)
	if err != nil {
		return nil, fmt.Errorf("graph overview: %w", err)
	}

	rows, err := db.Query(`
		SELECT layer, COUNT(*)
		FROM materials
		WHERE category = ? AND layer IS NOT NULL
		GROUP BY layer
	`, string(CategoryAnalyticalNodes))
	if err != nil {
		return nil, fmt.Errorf("graph overview by layer: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var layer string
		var count int
		if err := rows.Scan(&layer, &count); err != nil {
			continue
		}
		ov.ByLayer[layer] = count
	}
	return ov, rows.Err()
}

// GetStatistics reports the total material count plus the per-category
// aggregates maintained by v_category_stats.
func (s *Store) GetStatistics() (*Statistics, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByCategory: map[MaterialCategory]CategoryStats{},
		Timestamp:  time.Now().UTC(),
	}

	if err := db.QueryRow(`SELECT COUNT(*) FROM materials`).Scan(&stats.TotalMaterials); err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}

	rows, err := db.Query(`SELECT category, count, total_bytes, last_update FROM v_category_stats`)
	if err != nil {
		return nil, fmt.Errorf("statistics by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var cs CategoryStats
		if err := rows.Scan(&category, &cs.Count, &cs.TotalBytes, &cs.LastUpdate); err != nil {
			continue
		}
		stats.ByCategory[MaterialCategory(category)] = cs
	}
	return stats, rows.Err()
}

// LogOperation appends one entry to the operation log. Each append is
// atomic and independent; a lost entry degrades observability only, so
// callers treat failures as best-effort.
func (s *Store) LogOperation(e *OperationEntry) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	var paramsJSON, affectedJSON []byte
	if e.Params != nil {
		paramsJSON, _ = json.Marshal(e.Params)
	}
	if e.AffectedMaterials != nil {
		affectedJSON, _ = json.Marshal(e.AffectedMaterials)
	}

	_, err = db.Exec(`
		INSERT INTO agent_operations (agent_id, operation, params, status,
			error_message, affected_materials, session_id, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.AgentID, e.Operation, paramsJSON, e.Status, nullableString(e.Error),
		affectedJSON, nullableString(e.SessionID), e.DurationMs, time.Now().UTC())
	if err != nil {
		logging.Debug("store", "operation log append failed: %v", err)
		return fmt.Errorf("log operation: %w", err)
	}
	return nil
}

// CountOperations returns the operation log size, optionally per session
func (s *Store) CountOperations(sessionID string) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if sessionID == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM agent_operations`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM agent_operations WHERE session_id = ?`, sessionID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}
