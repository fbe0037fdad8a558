package store

import (
	"errors"
	"path/filepath"
	"testing"
)

// setupTestStore opens a store over a throwaway database file. Dimension 4
// keeps test embeddings readable.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "knowledge.db"), 4)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestMaterial(id string, category MaterialCategory) *Material {
	return &Material{
		MaterialID: id,
		Filename:   id + ".md",
		Title:      "Material " + id,
		Category:   category,
		Status:     StatusProduction,
		FilePath:   "knowledge/" + id + ".md",
	}
}

func mustAdd(t *testing.T, s *Store, m *Material) {
	t.Helper()
	if err := s.AddMaterial(m); err != nil {
		t.Fatalf("AddMaterial(%s): %v", m.MaterialID, err)
	}
}

func TestStore_AddGetMaterial(t *testing.T) {
	s := setupTestStore(t)

	size := int64(2048)
	m := newTestMaterial("SRC-DOC-001", CategoryRawSources)
	m.FileSizeBytes = &size
	m.Tags = []string{"contract", "psb"}
	m.Metadata = map[string]any{"origin": "upload"}
	mustAdd(t, s, m)

	got, err := s.GetMaterial("SRC-DOC-001")
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if got == nil {
		t.Fatal("material should exist after AddMaterial")
	}
	if got.Title != "Material SRC-DOC-001" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Category != CategoryRawSources {
		t.Errorf("category = %q", got.Category)
	}
	if got.FileSizeBytes == nil || *got.FileSizeBytes != 2048 {
		t.Errorf("file_size_bytes = %v", got.FileSizeBytes)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "contract" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Metadata["origin"] != "upload" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if got.Version != "1.0.0" {
		t.Errorf("version should default to 1.0.0, got %q", got.Version)
	}
	// Raw sources carry no graph counters
	if got.BacklinksCount != nil {
		t.Errorf("raw source should have no backlinks counter, got %d", *got.BacklinksCount)
	}
}

func TestStore_GetMaterial_Unknown(t *testing.T) {
	s := setupTestStore(t)

	got, err := s.GetMaterial("NODE-GHOST")
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if got != nil {
		t.Errorf("unknown id should return nil, got %+v", got)
	}
}

func TestStore_AddMaterial_Validation(t *testing.T) {
	s := setupTestStore(t)

	cases := []struct {
		name string
		m    *Material
	}{
		{"empty id", &Material{Category: CategoryRawSources, Status: StatusProduction}},
		{"bad category", &Material{MaterialID: "X-1", Category: "NONSENSE", Status: StatusProduction}},
		{"bad status", &Material{MaterialID: "X-2", Category: CategoryRawSources, Status: "gone"}},
	}
	for _, tc := range cases {
		err := s.AddMaterial(tc.m)
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %T", tc.name, err)
		}
	}
}

func TestStore_AddMaterial_AnalyticalCounters(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-RISK", CategoryAnalyticalNodes))

	got, err := s.GetMaterial("NODE-RISK")
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if got.BacklinksCount == nil || *got.BacklinksCount != 0 {
		t.Errorf("backlinks_count should start at 0, got %v", got.BacklinksCount)
	}
	if got.OutgoingEdgesCount == nil || *got.OutgoingEdgesCount != 0 {
		t.Errorf("outgoing_edges_count should start at 0, got %v", got.OutgoingEdgesCount)
	}
	if len(got.SourceIDs) != 0 {
		t.Errorf("source_ids should start empty, got %v", got.SourceIDs)
	}
}

func TestStore_AddMaterial_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-DUP", CategoryAnalyticalNodes))

	if err := s.AddMaterial(newTestMaterial("NODE-DUP", CategoryAnalyticalNodes)); err == nil {
		t.Error("duplicate material_id should be rejected")
	}
}

func TestStore_AddMaterial_EmbeddingIndexBestEffort(t *testing.T) {
	s := setupTestStore(t)

	// Store dimension is 4; an off-dimension embedding cannot be indexed
	// for KNN but the material itself must still land.
	m := newTestMaterial("NODE-EMB", CategoryAnalyticalNodes)
	m.Embedding = []float64{0.1, 0.2, 0.3}
	if err := s.AddMaterial(m); err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}

	got, err := s.GetMaterial("NODE-EMB")
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if got == nil {
		t.Fatal("material not persisted")
	}
	if len(got.Embedding) != 3 {
		t.Errorf("embedding not round-tripped, got %v", got.Embedding)
	}
}

func TestStore_UpdateMaterial(t *testing.T) {
	s := setupTestStore(t)
	m := newTestMaterial("NODE-CONTEXT", CategoryAnalyticalNodes)
	mustAdd(t, s, m)

	m.Title = "Updated Context"
	m.Status = StatusImmutable
	m.Version = "1.1.0"
	if err := s.UpdateMaterial(m); err != nil {
		t.Fatalf("UpdateMaterial: %v", err)
	}

	got, err := s.GetMaterial("NODE-CONTEXT")
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if got.Title != "Updated Context" || got.Status != StatusImmutable || got.Version != "1.1.0" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestStore_UpdateMaterial_Unknown(t *testing.T) {
	s := setupTestStore(t)

	err := s.UpdateMaterial(newTestMaterial("NODE-MISSING", CategoryAnalyticalNodes))
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestStore_ListMaterials_Filters(t *testing.T) {
	s := setupTestStore(t)

	src := newTestMaterial("SRC-A", CategoryRawSources)
	mustAdd(t, s, src)

	n1 := newTestMaterial("NODE-A", CategoryAnalyticalNodes)
	n1.Layer = "L1-Strategic"
	mustAdd(t, s, n1)

	n2 := newTestMaterial("NODE-B", CategoryAnalyticalNodes)
	n2.Layer = "L2-Operational"
	n2.Status = StatusDraft
	mustAdd(t, s, n2)

	all, err := s.ListMaterials(ListFilter{})
	if err != nil {
		t.Fatalf("ListMaterials: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 materials, got %d", len(all))
	}

	nodes, err := s.ListMaterials(ListFilter{Category: CategoryAnalyticalNodes})
	if err != nil {
		t.Fatalf("ListMaterials(category): %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("expected 2 analytical nodes, got %d", len(nodes))
	}

	l1, err := s.ListMaterials(ListFilter{Layer: "L1-Strategic"})
	if err != nil {
		t.Fatalf("ListMaterials(layer): %v", err)
	}
	if len(l1) != 1 || l1[0].MaterialID != "NODE-A" {
		t.Errorf("layer filter returned %v", l1)
	}

	// Conjunctive filters
	draftNodes, err := s.ListMaterials(ListFilter{Category: CategoryAnalyticalNodes, Status: StatusDraft})
	if err != nil {
		t.Fatalf("ListMaterials(category+status): %v", err)
	}
	if len(draftNodes) != 1 || draftNodes[0].MaterialID != "NODE-B" {
		t.Errorf("conjunctive filter returned %v", draftNodes)
	}

	if _, err := s.ListMaterials(ListFilter{Category: "BOGUS"}); !IsValidation(err) {
		t.Errorf("invalid category should fail validation, got %v", err)
	}
}

func TestStore_ListMaterials_Pagination(t *testing.T) {
	s := setupTestStore(t)
	ids := []string{"SRC-1", "SRC-2", "SRC-3", "SRC-4", "SRC-5"}
	for _, id := range ids {
		mustAdd(t, s, newTestMaterial(id, CategoryRawSources))
	}

	page1, err := s.ListMaterials(ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListMaterials page 1: %v", err)
	}
	page2, err := s.ListMaterials(ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListMaterials page 2: %v", err)
	}
	if len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("expected 2+2 results, got %d+%d", len(page1), len(page2))
	}
	seen := map[string]bool{}
	for _, m := range append(page1, page2...) {
		if seen[m.MaterialID] {
			t.Errorf("material %s appeared on both pages", m.MaterialID)
		}
		seen[m.MaterialID] = true
	}
	// Newest first, insertion order breaks timestamp ties
	if page1[0].MaterialID != "SRC-5" {
		t.Errorf("expected newest material first, got %s", page1[0].MaterialID)
	}
}

func TestStore_CloseThenReuse(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("SRC-PERSIST", CategoryRawSources))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Next call reconnects transparently
	got, err := s.GetMaterial("SRC-PERSIST")
	if err != nil {
		t.Fatalf("GetMaterial after Close: %v", err)
	}
	if got == nil {
		t.Error("material should survive reconnect")
	}
}
