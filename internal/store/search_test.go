package store

import (
	"math"
	"reflect"
	"testing"
)

func setupSearchFixture(t *testing.T) *Store {
	t.Helper()
	s := setupTestStore(t)

	risk := newTestMaterial("NODE-RISK", CategoryAnalyticalNodes)
	risk.Title = "Contract Risk Assessment"
	risk.Tags = []string{"risk", "contract"}
	risk.Layer = "L2-Operational"
	mustAdd(t, s, risk)

	pay := newTestMaterial("NODE-PAYMENT", CategoryAnalyticalNodes)
	pay.Title = "Payment Schedule Analysis"
	pay.Tags = []string{"payment"}
	mustAdd(t, s, pay)

	src := newTestMaterial("SRC-CONTRACT", CategoryRawSources)
	src.Title = "Original Contract Document"
	mustAdd(t, s, src)

	return s
}

func TestStore_SearchMaterials(t *testing.T) {
	s := setupSearchFixture(t)

	results, err := s.SearchMaterials("contract risk", "", 0)
	if err != nil {
		t.Fatalf("SearchMaterials: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected at least 2 hits, got %d", len(results))
	}
	// Both tokens match NODE-RISK, only one matches SRC-CONTRACT
	if results[0].MaterialID != "NODE-RISK" {
		t.Errorf("best hit = %s, want NODE-RISK", results[0].MaterialID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Rank > results[i-1].Rank {
			t.Errorf("results not ordered by rank: %v", results)
		}
	}
}

func TestStore_SearchMaterials_CategoryFilter(t *testing.T) {
	s := setupSearchFixture(t)

	results, err := s.SearchMaterials("contract", CategoryRawSources, 0)
	if err != nil {
		t.Fatalf("SearchMaterials: %v", err)
	}
	for _, r := range results {
		if r.Category != CategoryRawSources {
			t.Errorf("hit outside category filter: %+v", r)
		}
	}
	if len(results) != 1 || results[0].MaterialID != "SRC-CONTRACT" {
		t.Errorf("results = %v", results)
	}

	if _, err := s.SearchMaterials("contract", "BOGUS", 0); !IsValidation(err) {
		t.Errorf("invalid category should fail validation, got %v", err)
	}
}

func TestStore_SearchMaterials_EmptyQuery(t *testing.T) {
	s := setupSearchFixture(t)

	for _, q := range []string{"", "   ", "the of a", "?!"} {
		results, err := s.SearchMaterials(q, "", 0)
		if err != nil {
			t.Fatalf("SearchMaterials(%q): %v", q, err)
		}
		if len(results) != 0 {
			t.Errorf("query %q should match nothing, got %v", q, results)
		}
	}
}

func TestStore_SearchMaterials_NoMatch(t *testing.T) {
	s := setupSearchFixture(t)

	results, err := s.SearchMaterials("zeppelin", "", 0)
	if err != nil {
		t.Fatalf("SearchMaterials: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits, got %v", results)
	}
}

func TestStore_SetSearchContent(t *testing.T) {
	s := setupSearchFixture(t)

	// Must hold whether or not the build carries FTS5.
	if err := s.SetSearchContent("NODE-PAYMENT", "quarterly installment penalty clauses"); err != nil {
		t.Fatalf("SetSearchContent: %v", err)
	}
	if err := s.SetSearchContent("NODE-GHOST", "anything"); !IsNotFound(err) {
		t.Errorf("unknown material should be not-found, got %v", err)
	}
}

func TestTokenizeQuery(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"contract risk", []string{"contract", "risk"}},
		{"find the payment schedule", []string{"payment", "schedule"}},
		{"a of the", nil},
		{"", nil},
		{"риски контракта", []string{"риски", "контракта"}},
		{"NODE-RISK!", []string{"NODE-RISK"}},
	}
	for _, tc := range cases {
		got := tokenizeQuery(tc.query)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("tokenizeQuery(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestStore_SemanticSearch(t *testing.T) {
	s := setupTestStore(t)

	a := newTestMaterial("NODE-A", CategoryAnalyticalNodes)
	a.Embedding = []float64{1, 0, 0, 0}
	mustAdd(t, s, a)

	b := newTestMaterial("NODE-B", CategoryAnalyticalNodes)
	b.Embedding = []float64{0.9, 0.1, 0, 0}
	mustAdd(t, s, b)

	c := newTestMaterial("NODE-C", CategoryAnalyticalNodes)
	c.Embedding = []float64{0, 0, 1, 0}
	mustAdd(t, s, c)

	results, err := s.SemanticSearch([]float64{1, 0, 0, 0}, "", 2)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(results))
	}
	if results[0].MaterialID != "NODE-A" || results[1].MaterialID != "NODE-B" {
		t.Errorf("order = %s, %s", results[0].MaterialID, results[1].MaterialID)
	}
	// Identical direction scores 1 regardless of backend
	if math.Abs(results[0].Similarity-1.0) > 1e-4 {
		t.Errorf("self similarity = %v", results[0].Similarity)
	}
	if results[1].Similarity >= results[0].Similarity {
		t.Errorf("similarities not descending: %v >= %v", results[1].Similarity, results[0].Similarity)
	}
}

func TestStore_SemanticSearch_CategoryFilter(t *testing.T) {
	s := setupTestStore(t)

	n := newTestMaterial("NODE-A", CategoryAnalyticalNodes)
	n.Embedding = []float64{1, 0, 0, 0}
	mustAdd(t, s, n)

	src := newTestMaterial("SRC-A", CategoryRawSources)
	src.Embedding = []float64{1, 0, 0, 0}
	mustAdd(t, s, src)

	results, err := s.SemanticSearch([]float64{1, 0, 0, 0}, CategoryRawSources, 10)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 1 || results[0].MaterialID != "SRC-A" {
		t.Errorf("results = %v", results)
	}
}

func TestStore_SemanticSearch_Validation(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.SemanticSearch(nil, "", 0); !IsValidation(err) {
		t.Errorf("empty embedding should fail validation, got %v", err)
	}
	if _, err := s.SemanticSearch([]float64{1, 0, 0, 0}, "BOGUS", 0); !IsValidation(err) {
		t.Errorf("invalid category should fail validation, got %v", err)
	}
}

func TestL2ToSimilarity(t *testing.T) {
	// Unit vectors: squared L2 distance is twice the cosine distance
	cases := []struct {
		l2   float64
		want float64
	}{
		{0, 1},
		{math.Sqrt2, 0},
		{2, -1},
	}
	for _, tc := range cases {
		if got := l2ToSimilarity(tc.l2); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("l2ToSimilarity(%v) = %v, want %v", tc.l2, got, tc.want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel = %v", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal = %v", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 0}); got != 0 {
		t.Errorf("zero vector = %v", got)
	}
}
