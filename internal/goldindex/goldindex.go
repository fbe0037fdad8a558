// Package goldindex loads the precomputed read-only snapshot that
// accelerates id, keyword and layer lookups. The snapshot is built offline,
// loaded once at process start and never mutated, so all reads are safe for
// unsynchronized concurrent use. It is a disposable acceleration structure:
// the relational store stays the source of truth, and a missing snapshot
// degrades lookups to "not found" instead of failing.
package goldindex

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/portal-dtwins/knowledge-gate/internal/logging"
)

// BacklinkEntry is one row of the precomputed backlink ranking, ordered
// descending by backlink count.
type BacklinkEntry struct {
	Node      string `json:"node"`
	Backlinks int    `json:"backlinks"`
}

// Index is the in-memory snapshot
type Index struct {
	QuickStats       map[string]any      `json:"quick_stats"`
	CriticalPath     any                 `json:"critical_path"`
	BacklinksRanking []BacklinkEntry     `json:"backlinks_ranking"`
	IDToPath         map[string]string   `json:"id_to_path"`
	SearchKeywords   map[string][]string `json:"search_keywords"`
	LayerMembers     map[string][]string `json:"layer_members"`
}

// Load reads the snapshot file. A missing file yields an empty index, not
// an error; a malformed file is reported.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Debug("goldindex", "snapshot not found at %s, starting empty", path)
		return &Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read gold index %s: %w", path, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse gold index %s: %w", path, err)
	}
	logging.Debug("goldindex", "loaded snapshot: %d keywords, %d paths, %d ranked nodes",
		len(idx.SearchKeywords), len(idx.IDToPath), len(idx.BacklinksRanking))
	return &idx, nil
}

// Empty reports whether the snapshot holds no data at all
func (idx *Index) Empty() bool {
	return idx == nil || (len(idx.IDToPath) == 0 && len(idx.SearchKeywords) == 0 &&
		len(idx.LayerMembers) == 0 && len(idx.BacklinksRanking) == 0 &&
		len(idx.QuickStats) == 0 && idx.CriticalPath == nil)
}

// PathFor is the O(1) id-to-path lookup. ok is false when the id is not in
// the snapshot (including when the snapshot is absent).
func (idx *Index) PathFor(materialID string) (string, bool) {
	if idx == nil {
		return "", false
	}
	path, ok := idx.IDToPath[materialID]
	return path, ok
}

// Members returns the node ids recorded for a layer label
func (idx *Index) Members(layer string) []string {
	if idx == nil {
		return []string{}
	}
	members, ok := idx.LayerMembers[layer]
	if !ok {
		return []string{}
	}
	return members
}

// TopBacklinks returns the first n entries of the backlink ranking
func (idx *Index) TopBacklinks(n int) []BacklinkEntry {
	if idx == nil || n <= 0 {
		return []BacklinkEntry{}
	}
	if n > len(idx.BacklinksRanking) {
		n = len(idx.BacklinksRanking)
	}
	out := make([]BacklinkEntry, n)
	copy(out, idx.BacklinksRanking[:n])
	return out
}

// KeywordStatus classifies a keyword lookup outcome. not_found is distinct
// from an error: the operation succeeded, the term is simply absent.
type KeywordStatus string

const (
	KeywordExact    KeywordStatus = "exact"
	KeywordPartial  KeywordStatus = "partial"
	KeywordNotFound KeywordStatus = "not_found"
)

// KeywordResult is a keyword lookup outcome: Nodes on an exact hit, Matches
// on substring hits.
type KeywordResult struct {
	Status  KeywordStatus
	Keyword string
	Nodes   []string
	Matches map[string][]string
}

// SearchKeyword looks a keyword up verbatim first; an exact hit returns its
// node list immediately and never falls through. On a miss it scans every
// key for a case-insensitive substring match and returns all containing
// keys with their node lists.
func (idx *Index) SearchKeyword(keyword string) KeywordResult {
	result := KeywordResult{Keyword: keyword}
	if idx == nil || len(idx.SearchKeywords) == 0 {
		result.Status = KeywordNotFound
		return result
	}

	if nodes, ok := idx.SearchKeywords[keyword]; ok {
		result.Status = KeywordExact
		result.Nodes = nodes
		return result
	}

	fragment := strings.ToLower(keyword)
	matches := map[string][]string{}
	for kw, nodes := range idx.SearchKeywords {
		if strings.Contains(strings.ToLower(kw), fragment) {
			matches[kw] = nodes
		}
	}
	if len(matches) > 0 {
		result.Status = KeywordPartial
		result.Matches = matches
		return result
	}

	result.Status = KeywordNotFound
	return result
}
