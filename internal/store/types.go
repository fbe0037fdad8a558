package store

import (
	"time"
)

// MaterialCategory classifies a material within the knowledge base
type MaterialCategory string

const (
	CategoryRawSources      MaterialCategory = "RAW_SOURCES"
	CategoryAnalyticalNodes MaterialCategory = "ANALYTICAL_NODES"
	CategoryKnowledgeGraph  MaterialCategory = "KNOWLEDGE_GRAPH"
	CategorySchemas         MaterialCategory = "SCHEMAS"
	CategoryIndexes         MaterialCategory = "INDEXES"
	CategoryDocumentation   MaterialCategory = "DOCUMENTATION"
	CategoryArchive         MaterialCategory = "ARCHIVE"
	CategoryGold            MaterialCategory = "GOLD"
)

// MaterialStatus is the lifecycle state of a material
type MaterialStatus string

const (
	StatusProduction MaterialStatus = "production"
	StatusImmutable  MaterialStatus = "immutable"
	StatusDraft      MaterialStatus = "draft"
	StatusArchived   MaterialStatus = "archived"
	StatusDeprecated MaterialStatus = "deprecated"
)

var categories = map[MaterialCategory]bool{
	CategoryRawSources:      true,
	CategoryAnalyticalNodes: true,
	CategoryKnowledgeGraph:  true,
	CategorySchemas:         true,
	CategoryIndexes:         true,
	CategoryDocumentation:   true,
	CategoryArchive:         true,
	CategoryGold:            true,
}

var statuses = map[MaterialStatus]bool{
	StatusProduction: true,
	StatusImmutable:  true,
	StatusDraft:      true,
	StatusArchived:   true,
	StatusDeprecated: true,
}

// ParseCategory validates a caller-supplied category string. Unknown values
// are rejected before any store access.
func ParseCategory(s string) (MaterialCategory, error) {
	c := MaterialCategory(s)
	if !categories[c] {
		return "", &ValidationError{Field: "category", Value: s}
	}
	return c, nil
}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (MaterialStatus, error) {
	st := MaterialStatus(s)
	if !statuses[st] {
		return "", &ValidationError{Field: "status", Value: s}
	}
	return st, nil
}

// Material is the central entity of the knowledge base: a raw source
// document or a derived analytical node, identified by a stable external id
// (NODE-*, SRC-*, GRAPH-*, SCHEMA-*, GOLD-*).
type Material struct {
	MaterialID    string           `json:"material_id"`
	Filename      string           `json:"filename"`
	Title         string           `json:"title"`
	Category      MaterialCategory `json:"category"`
	Status        MaterialStatus   `json:"status"`
	FilePath      string           `json:"file_path"`
	FileSizeBytes *int64           `json:"file_size_bytes,omitempty"`
	Layer         string           `json:"layer,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Version       string           `json:"version"`
	Embedding     []float64        `json:"embedding,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Denormalized counters, populated for ANALYTICAL_NODES on retrieval
	BacklinksCount     *int     `json:"backlinks_count,omitempty"`
	OutgoingEdgesCount *int     `json:"outgoing_edges_count,omitempty"`
	SourceIDs          []string `json:"source_ids,omitempty"`
}

// MaterialSummary is the listing projection of a material
type MaterialSummary struct {
	MaterialID    string           `json:"material_id"`
	Filename      string           `json:"filename"`
	Title         string           `json:"title"`
	Category      MaterialCategory `json:"category"`
	Status        MaterialStatus   `json:"status"`
	Layer         string           `json:"layer,omitempty"`
	FileSizeBytes *int64           `json:"file_size_bytes,omitempty"`
	Version       string           `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ListFilter narrows a ListMaterials call. All filters are conjunctive;
// zero values mean "no filter".
type ListFilter struct {
	Category MaterialCategory
	Status   MaterialStatus
	Layer    string
	Limit    int
	Offset   int
}

// DefaultListLimit bounds unpaginated listing calls
const DefaultListLimit = 100

// Direction selects which edges of a node to fetch
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionBoth     Direction = "both"
)

// ParseDirection validates a caller-supplied direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionIncoming, DirectionOutgoing, DirectionBoth:
		return Direction(s), nil
	case "":
		return DirectionBoth, nil
	}
	return "", &ValidationError{Field: "direction", Value: s}
}

// Edge is a directed, typed, weighted reference link between two materials.
// Distinct from SourceNodeMapping: edges express topical links, mappings
// express provenance.
type Edge struct {
	SourceMaterialID string    `json:"source_material_id"`
	TargetMaterialID string    `json:"target_material_id"`
	EdgeType         string    `json:"edge_type"`
	Weight           float64   `json:"weight"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// EdgeRef is one edge as seen from a node, joined with the peer's title
type EdgeRef struct {
	PeerID    string  `json:"peer_id"`
	PeerTitle string  `json:"peer_title"`
	EdgeType  string  `json:"edge_type"`
	Weight    float64 `json:"weight"`
}

// EdgeSet holds the incoming and outgoing edges of one node
type EdgeSet struct {
	Incoming []EdgeRef `json:"incoming"`
	Outgoing []EdgeRef `json:"outgoing"`
}

// SourceNodeMapping is a provenance fact: a raw source that fed a derived
// analytical node, with a typed mechanism and confidence in [0,1].
type SourceNodeMapping struct {
	SourceID    string    `json:"source_id"`
	NodeID      string    `json:"node_id"`
	MappingType string    `json:"mapping_type"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// NodeRef is a derived node as reported by a source chain
type NodeRef struct {
	MaterialID         string `json:"material_id"`
	Title              string `json:"title"`
	Layer              string `json:"layer,omitempty"`
	BacklinksCount     int    `json:"backlinks_count"`
	OutgoingEdgesCount int    `json:"outgoing_edges_count"`
}

// SourceChain answers "what downstream knowledge did this source produce"
type SourceChain struct {
	Source         SourceInfo `json:"source"`
	DerivedNodes   []NodeRef  `json:"derived_nodes"`
	NodesCount     int        `json:"nodes_count"`
	TotalBacklinks int        `json:"total_backlinks"`
}

// SourceInfo is the source header of a chain
type SourceInfo struct {
	MaterialID    string `json:"material_id"`
	Filename      string `json:"filename"`
	Title         string `json:"title"`
	FileSizeBytes *int64 `json:"file_size_bytes,omitempty"`
}

// SourceRef answers "what evidence backs this node"
type SourceRef struct {
	MaterialID  string  `json:"material_id"`
	Filename    string  `json:"filename"`
	Title       string  `json:"title"`
	MappingType string  `json:"mapping_type"`
	Confidence  float64 `json:"confidence"`
}

// SearchResult is one lexical full-text hit, ranked descending
type SearchResult struct {
	MaterialID string           `json:"material_id"`
	Title      string           `json:"title"`
	Category   MaterialCategory `json:"category"`
	Layer      string           `json:"layer,omitempty"`
	Rank       float64          `json:"rank"`
}

// SemanticResult is one vector-similarity hit; Similarity = 1 - distance
type SemanticResult struct {
	MaterialID string           `json:"material_id"`
	Title      string           `json:"title"`
	Category   MaterialCategory `json:"category"`
	Layer      string           `json:"layer,omitempty"`
	Similarity float64          `json:"similarity"`
}

// GraphOverview holds corpus-wide graph counters
type GraphOverview struct {
	NodesCount     int            `json:"nodes_count"`
	EdgesCount     int            `json:"edges_count"`
	TotalBacklinks int            `json:"total_backlinks"`
	ByLayer        map[string]int `json:"by_layer"`
}

// CategoryStats is the per-category aggregate from v_category_stats
type CategoryStats struct {
	Count      int    `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
	LastUpdate string `json:"last_update,omitempty"`
}

// Statistics is the store-wide summary
type Statistics struct {
	TotalMaterials int                                `json:"total_materials"`
	ByCategory     map[MaterialCategory]CategoryStats `json:"by_category"`
	Timestamp      time.Time                          `json:"timestamp"`
}

// OperationEntry is one row of the append-only operation log. Lost entries
// degrade observability only; they are never user-visible failures.
type OperationEntry struct {
	AgentID           string         `json:"agent_id"`
	Operation         string         `json:"operation"`
	Params            map[string]any `json:"params,omitempty"`
	Status            string         `json:"status"`
	Error             string         `json:"error,omitempty"`
	AffectedMaterials []string       `json:"affected_materials,omitempty"`
	SessionID         string         `json:"session_id,omitempty"`
	DurationMs        int64          `json:"duration_ms,omitempty"`
}
