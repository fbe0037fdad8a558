// Package gate is the operation layer over the knowledge store: it
// normalizes identifiers, validates enum inputs before any store access,
// composes the keyword-then-lexical search fallback, and wraps every answer
// in a uniform status envelope for whatever surface exposes it.
package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/portal-dtwins/knowledge-gate/internal/goldindex"
	"github.com/portal-dtwins/knowledge-gate/internal/logging"
	"github.com/portal-dtwins/knowledge-gate/internal/store"
)

// DefaultListLimit bounds listing at the query-handling layer
const DefaultListLimit = 50

// Gate threads one store handle and one immutable gold index through every
// operation. Multiple independent gates may coexist, each with its own
// store instance.
type Gate struct {
	store   *store.Store
	gold    *goldindex.Index
	session *Session
	agentID string
}

// New wires a gate over a store and an optional gold index (nil behaves as
// an empty snapshot).
func New(st *store.Store, gold *goldindex.Index, agentID string) *Gate {
	if gold == nil {
		gold = &goldindex.Index{}
	}
	if agentID == "" {
		agentID = "AGENT-KNOWLEDGE-GATE"
	}
	g := &Gate{store: st, gold: gold, agentID: agentID}
	g.session = NewSession(agentID)
	logging.Info("gate", "initialized, session %s", g.session.ID())
	return g
}

// Session exposes the current session context
func (g *Gate) Session() *Session {
	return g.session
}

// GetMaterial fetches one material by external id
func (g *Gate) GetMaterial(rawID string) Result {
	const op = "get_material"
	started := time.Now()

	id, err := NormalizeID(rawID)
	if err != nil {
		return g.fail(op, started, map[string]any{"material_id": rawID}, err)
	}

	g.session.AccessMaterial(id)
	m, err := g.store.GetMaterial(id)
	if err != nil {
		return g.fail(op, started, map[string]any{"material_id": id}, err)
	}
	if m == nil {
		g.logOp(op, map[string]any{"material_id": id}, string(StatusError), started, id)
		return failure(op, fmt.Sprintf("material %s not found", id))
	}

	g.logOp(op, map[string]any{"material_id": id}, string(StatusSuccess), started, id)
	return success(op, m)
}

// ListMaterials lists materials with optional conjunctive filters. Category
// and status are validated against their closed sets before the store is
// touched; layer accepts the L1/L2/L3 shorthand.
func (g *Gate) ListMaterials(category, status, layer string, limit int) Result {
	const op = "list_materials"
	started := time.Now()
	params := map[string]any{"category": category, "status": status, "layer": layer, "limit": limit}

	var f store.ListFilter
	var err error
	if category != "" {
		if f.Category, err = store.ParseCategory(category); err != nil {
			return g.fail(op, started, params, err)
		}
	}
	if status != "" {
		if f.Status, err = store.ParseStatus(status); err != nil {
			return g.fail(op, started, params, err)
		}
	}
	f.Layer = ExpandLayer(layer)
	f.Limit = limit
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}

	materials, err := g.store.ListMaterials(f)
	if err != nil {
		return g.fail(op, started, params, err)
	}

	g.logOp(op, params, string(StatusSuccess), started)
	return success(op, map[string]any{
		"count":     len(materials),
		"materials": materials,
		"filters": map[string]any{
			"category": category,
			"status":   status,
			"layer":    f.Layer,
		},
	})
}

// Search runs lexical full-text search, optionally category-restricted
func (g *Gate) Search(query, category string) Result {
	const op = "search"
	started := time.Now()
	params := map[string]any{"query": query, "category": category}

	var cat store.MaterialCategory
	var err error
	if category != "" {
		if cat, err = store.ParseCategory(category); err != nil {
			return g.fail(op, started, params, err)
		}
	}

	results, err := g.store.SearchMaterials(query, cat, store.DefaultSearchLimit)
	if err != nil {
		return g.fail(op, started, params, err)
	}
	logging.Debug("gate", "search %q: %d hits", logging.Truncate(query, 80), len(results))

	g.logOp(op, params, string(StatusSuccess), started)
	return success(op, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// SearchByKeyword resolves a keyword against the gold index: exact hit
// first, case-insensitive substring fallback second, not_found last. An
// exact hit never falls through to the substring scan.
func (g *Gate) SearchByKeyword(keyword string) Result {
	const op = "search_by_keyword"
	started := time.Now()
	params := map[string]any{"keyword": keyword}

	kr := g.gold.SearchKeyword(keyword)
	switch kr.Status {
	case goldindex.KeywordExact:
		g.logOp(op, params, string(StatusSuccess), started)
		return success(op, map[string]any{
			"keyword": keyword,
			"nodes":   kr.Nodes,
			"count":   len(kr.Nodes),
		})
	case goldindex.KeywordPartial:
		g.logOp(op, params, string(StatusSuccess), started)
		return success(op, map[string]any{
			"keyword": keyword,
			"matches": kr.Matches,
		})
	}

	g.logOp(op, params, string(StatusNotFound), started)
	return notFound(op, fmt.Sprintf("keyword %q not found", keyword))
}

// SmartSearch handles free text. A material id embedded in the query wins
// outright; otherwise the curated keyword index is consulted and anything
// it misses falls through to lexical ranking.
func (g *Gate) SmartSearch(query string) Result {
	g.session.RecordQuery()

	if id := ExtractID(query); id != "" {
		return g.GetMaterial(id)
	}
	if result := g.SearchByKeyword(query); result.Status == StatusSuccess {
		return result
	}
	return g.Search(query, "")
}

// SemanticSearch runs nearest-neighbor lookup over stored embeddings
func (g *Gate) SemanticSearch(embedding []float64, category string, limit int) Result {
	const op = "semantic_search"
	started := time.Now()
	params := map[string]any{"category": category, "limit": limit, "dim": len(embedding)}

	var cat store.MaterialCategory
	var err error
	if category != "" {
		if cat, err = store.ParseCategory(category); err != nil {
			return g.fail(op, started, params, err)
		}
	}

	results, err := g.store.SemanticSearch(embedding, cat, limit)
	if err != nil {
		return g.fail(op, started, params, err)
	}

	g.logOp(op, params, string(StatusSuccess), started)
	return success(op, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

// QuickLookup resolves a material id to its filesystem path through the
// gold index, bypassing the store entirely.
func (g *Gate) QuickLookup(rawID string) Result {
	const op = "quick_lookup"
	started := time.Now()

	id, err := NormalizeID(rawID)
	if err != nil {
		return g.fail(op, started, map[string]any{"material_id": rawID}, err)
	}

	path, ok := g.gold.PathFor(id)
	if !ok {
		g.logOp(op, map[string]any{"material_id": id}, string(StatusError), started)
		return failure(op, fmt.Sprintf("material %s not in index", id))
	}

	g.logOp(op, map[string]any{"material_id": id}, string(StatusSuccess), started, id)
	return success(op, map[string]any{
		"material_id": id,
		"path":        path,
	})
}

// LayerNodes lists the gold-index members of one layer
func (g *Gate) LayerNodes(layer string) Result {
	const op = "get_layer_nodes"
	started := time.Now()

	layer = ExpandLayer(layer)
	nodes := g.gold.Members(layer)

	g.logOp(op, map[string]any{"layer": layer}, string(StatusSuccess), started)
	return success(op, map[string]any{
		"layer": layer,
		"nodes": nodes,
		"count": len(nodes),
	})
}

// GetSourceChain reports every analytical node derived from one raw source
func (g *Gate) GetSourceChain(rawID string) Result {
	const op = "get_source_chain"
	started := time.Now()

	id, err := NormalizeID(rawID)
	if err != nil {
		return g.fail(op, started, map[string]any{"source_id": rawID}, err)
	}

	chain, err := g.store.GetSourceChain(id)
	if err != nil {
		return g.fail(op, started, map[string]any{"source_id": id}, err)
	}

	g.logOp(op, map[string]any{"source_id": id}, string(StatusSuccess), started, id)
	return success(op, chain)
}

// GetNodeSources reports the evidence behind one node; an empty list is a
// valid answer.
func (g *Gate) GetNodeSources(rawID string) Result {
	const op = "get_node_sources"
	started := time.Now()

	id, err := NormalizeID(rawID)
	if err != nil {
		return g.fail(op, started, map[string]any{"node_id": rawID}, err)
	}

	sources, err := g.store.GetNodeSources(id)
	if err != nil {
		return g.fail(op, started, map[string]any{"node_id": id}, err)
	}

	g.logOp(op, map[string]any{"node_id": id}, string(StatusSuccess), started, id)
	return success(op, map[string]any{
		"node_id": id,
		"sources": sources,
	})
}

// GetNodeEdges reports the edges of one node. Unknown ids yield empty edge
// lists rather than an error.
func (g *Gate) GetNodeEdges(rawID, direction string) Result {
	const op = "get_node_edges"
	started := time.Now()

	id, err := NormalizeID(rawID)
	if err != nil {
		return g.fail(op, started, map[string]any{"node_id": rawID}, err)
	}
	dir, err := store.ParseDirection(direction)
	if err != nil {
		return g.fail(op, started, map[string]any{"node_id": id, "direction": direction}, err)
	}

	edges, err := g.store.GetNodeEdges(id, dir)
	if err != nil {
		return g.fail(op, started, map[string]any{"node_id": id, "direction": string(dir)}, err)
	}

	g.logOp(op, map[string]any{"node_id": id, "direction": string(dir)}, string(StatusSuccess), started, id)
	return success(op, map[string]any{
		"node_id":   id,
		"direction": string(dir),
		"edges":     edges,
	})
}

// GetStatistics reports the store-wide material statistics
func (g *Gate) GetStatistics() Result {
	const op = "get_statistics"
	started := time.Now()

	stats, err := g.store.GetStatistics()
	if err != nil {
		return g.fail(op, started, nil, err)
	}

	g.logOp(op, nil, string(StatusSuccess), started)
	return success(op, stats)
}

// GetOverview composes store statistics, graph counters and the gold-index
// annotations into one read-only report. An absent gold index omits its
// fields rather than failing.
func (g *Gate) GetOverview() Result {
	const op = "get_overview"
	started := time.Now()

	stats, err := g.store.GetStatistics()
	if err != nil {
		return g.fail(op, started, nil, err)
	}
	graph, err := g.store.GetGraphOverview()
	if err != nil {
		return g.fail(op, started, nil, err)
	}

	data := map[string]any{
		"database": stats,
		"graph":    graph,
	}
	if !g.gold.Empty() {
		data["gold_index"] = g.gold.QuickStats
		data["critical_path"] = g.gold.CriticalPath
		data["backlinks_ranking"] = g.gold.TopBacklinks(5)
	}

	g.logOp(op, nil, string(StatusSuccess), started)
	return success(op, data)
}

// Info describes this gate instance
func (g *Gate) Info() Result {
	return success("get_agent_info", map[string]any{
		"agent_id":   g.agentID,
		"session_id": g.session.ID(),
		"capabilities": []string{
			"material_management",
			"search",
			"traceability",
			"validation",
		},
		"gold_index_loaded": !g.gold.Empty(),
	})
}

// SessionContext returns the current session summary
func (g *Gate) SessionContext() Result {
	return success("get_session_context", g.session.Summary())
}

// fail maps a typed store error to an envelope, logging the attempt. The
// envelope message stays human-readable; backend detail goes to the debug
// log only.
func (g *Gate) fail(operation string, started time.Time, params map[string]any, err error) Result {
	var be *store.BackendError
	msg := err.Error()
	if errors.As(err, &be) {
		logging.Debug("gate", "%s backend failure: %v", operation, be.Err)
		msg = fmt.Sprintf("backend unavailable during %s", operation)
	}
	g.logOpErr(operation, params, msg, started)
	return failure(operation, msg)
}

func (g *Gate) logOp(operation string, params map[string]any, status string, started time.Time, affected ...string) {
	g.session.RecordOperation(operation)
	entry := &store.OperationEntry{
		AgentID:           g.agentID,
		Operation:         operation,
		Params:            params,
		Status:            status,
		AffectedMaterials: affected,
		SessionID:         g.session.ID(),
		DurationMs:        time.Since(started).Milliseconds(),
	}
	if err := g.store.LogOperation(entry); err != nil {
		logging.Debug("gate", "operation log skipped for %s: %v", operation, err)
	}
}

func (g *Gate) logOpErr(operation string, params map[string]any, errMsg string, started time.Time) {
	g.session.RecordOperation(operation)
	entry := &store.OperationEntry{
		AgentID:    g.agentID,
		Operation:  operation,
		Params:     params,
		Status:     string(StatusError),
		Error:      errMsg,
		SessionID:  g.session.ID(),
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err := g.store.LogOperation(entry); err != nil {
		logging.Debug("gate", "operation log skipped for %s: %v", operation, err)
	}
}
