package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/tsawler/prose/v3"
)

// DefaultSearchLimit bounds lexical search results
const DefaultSearchLimit = 20

// DefaultSemanticLimit bounds vector search results
const DefaultSemanticLimit = 10

// SearchMaterials performs lexical full-text search over the materials
// index, ranked by BM25, optionally restricted to one category. Falls back
// to a Go-side token-count scan when FTS5 is unavailable.
func (s *Store) SearchMaterials(query string, category MaterialCategory, limit int) ([]SearchResult, error) {
	if category != "" && !categories[category] {
		return nil, &ValidationError{Field: "category", Value: string(category)}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return []SearchResult{}, nil
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	if results, err := s.searchFTS(db, tokens, category, limit); err == nil {
		return results, nil
	}

	return s.searchScan(db, tokens, category, limit)
}

// searchFTS queries the FTS5 index. FTS5's rank column is BM25 where lower
// is better; the reported Rank is its negation so results order descending.
func (s *Store) searchFTS(db *sql.DB, tokens []string, category MaterialCategory, limit int) ([]SearchResult, error) {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	ftsQuery := strings.Join(quoted, " OR ")

	q := `
		SELECT m.material_id, m.title, m.category, m.layer, -f.rank
		FROM materials_fts f
		JOIN materials m ON m.material_id = f.material_id
		WHERE materials_fts MATCH ?`
	args := []any{ftsQuery}
	if category != "" {
		q += ` AND m.category = ?`
		args = append(args, string(category))
	}
	q += `
		ORDER BY f.rank
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var layer sql.NullString
		if err := rows.Scan(&r.MaterialID, &r.Title, &r.Category, &layer, &r.Rank); err != nil {
			continue
		}
		r.Layer = layer.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchScan is the O(n) fallback: count token hits across title, filename,
// tags and layer.
func (s *Store) searchScan(db *sql.DB, tokens []string, category MaterialCategory, limit int) ([]SearchResult, error) {
	q := `SELECT material_id, title, category, layer, filename, COALESCE(tags, '') FROM materials`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, string(category))
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search scan: %w", err)
	}
	defer rows.Close()

	var candidates []SearchResult
	for rows.Next() {
		var r SearchResult
		var layer sql.NullString
		var filename, tags string
		if err := rows.Scan(&r.MaterialID, &r.Title, &r.Category, &layer, &filename, &tags); err != nil {
			continue
		}
		r.Layer = layer.String
		haystack := strings.ToLower(r.Title + " " + filename + " " + tags + " " + r.Layer)
		for _, tok := range tokens {
			if strings.Contains(haystack, strings.ToLower(tok)) {
				r.Rank++
			}
		}
		if r.Rank > 0 {
			candidates = append(candidates, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search scan: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rank > candidates[j].Rank
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if candidates == nil {
		candidates = []SearchResult{}
	}
	return candidates, nil
}

// SemanticSearch performs nearest-neighbor lookup over stored embeddings,
// ascending by cosine distance; Similarity = 1 - distance. Uses the vec0
// index when available, otherwise scans with a Go-side cosine.
func (s *Store) SemanticSearch(embedding []float64, category MaterialCategory, limit int) ([]SemanticResult, error) {
	if category != "" && !categories[category] {
		return nil, &ValidationError{Field: "category", Value: string(category)}
	}
	if len(embedding) == 0 {
		return nil, &ValidationError{Field: "embedding", Value: "empty"}
	}
	if limit <= 0 {
		limit = DefaultSemanticLimit
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	if s.vecUsable() && len(embedding) == s.dim {
		if results, err := s.semanticKNN(db, embedding, category, limit); err == nil {
			return results, nil
		}
	}
	return s.semanticScan(db, embedding, category, limit)
}

func (s *Store) semanticKNN(db *sql.DB, embedding []float64, category MaterialCategory, limit int) ([]SemanticResult, error) {
	serialized, err := sqlite_vec.SerializeFloat32(normalizeFloat32(toFloat32(embedding)))
	if err != nil {
		return nil, err
	}

	// KNN runs before the category filter applies, so over-fetch when a
	// filter is requested and trim after. The factor is an approximation:
	// when the requested category holds fewer than limit of the k nearest
	// rows the result comes back short of limit even though further
	// matches exist.
	k := limit
	if category != "" {
		k = limit * 8
	}

	rows, err := db.Query(`
		SELECT v.material_id, m.title, m.category, m.layer, v.distance
		FROM material_vec v
		JOIN materials m ON m.id = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serialized, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SemanticResult{}
	for rows.Next() {
		var r SemanticResult
		var layer sql.NullString
		var distance float64
		if err := rows.Scan(&r.MaterialID, &r.Title, &r.Category, &layer, &distance); err != nil {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		r.Layer = layer.String
		r.Similarity = l2ToSimilarity(distance)
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}
	return results, rows.Err()
}

func (s *Store) semanticScan(db *sql.DB, embedding []float64, category MaterialCategory, limit int) ([]SemanticResult, error) {
	q := `SELECT material_id, title, category, layer, embedding FROM materials WHERE embedding IS NOT NULL`
	var args []any
	if category != "" {
		q += ` AND category = ?`
		args = append(args, string(category))
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic scan: %w", err)
	}
	defer rows.Close()

	var candidates []SemanticResult
	for rows.Next() {
		var r SemanticResult
		var layer sql.NullString
		var embJSON []byte
		if err := rows.Scan(&r.MaterialID, &r.Title, &r.Category, &layer, &embJSON); err != nil {
			continue
		}
		stored := decodeEmbedding(embJSON)
		if len(stored) != len(embedding) {
			continue
		}
		r.Layer = layer.String
		r.Similarity = cosineSimilarity(embedding, stored)
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic scan: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if candidates == nil {
		candidates = []SemanticResult{}
	}
	return candidates, nil
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"and": true, "or": true, "but": true, "of": true, "at": true,
	"by": true, "for": true, "with": true, "to": true, "from": true,
	"in": true, "on": true, "this": true, "that": true, "it": true,
	"find": true, "search": true, "show": true, "get": true,
}

// tokenizeQuery splits free text into searchable tokens using the prose
// tokenizer, dropping punctuation, stop words and single characters.
func tokenizeQuery(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	doc, err := prose.NewDocument(query,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		// Tokenizer failure degrades to whitespace splitting
		return filterTokens(strings.Fields(query))
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, tok.Text)
	}
	return filterTokens(tokens)
}

func filterTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		t = strings.TrimFunc(t, func(r rune) bool {
			return !isWordRune(r)
		})
		if len([]rune(t)) < 2 {
			continue
		}
		if stopWords[strings.ToLower(t)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_':
		return true
	case r > 127: // keep non-ASCII letters (Cyrillic corpora)
		return true
	}
	return false
}
