package store

import (
	"testing"
)

func TestStore_AddEdge_BumpsCounters(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-CONTEXT", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-RISK", CategoryAnalyticalNodes))

	err := s.AddEdge(&Edge{
		SourceMaterialID: "NODE-CONTEXT",
		TargetMaterialID: "NODE-RISK",
		EdgeType:         "references",
	})
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	src, _ := s.GetMaterial("NODE-CONTEXT")
	if src.OutgoingEdgesCount == nil || *src.OutgoingEdgesCount != 1 {
		t.Errorf("source outgoing_edges_count = %v", src.OutgoingEdgesCount)
	}
	if *src.BacklinksCount != 0 {
		t.Errorf("source backlinks_count = %d", *src.BacklinksCount)
	}

	tgt, _ := s.GetMaterial("NODE-RISK")
	if tgt.BacklinksCount == nil || *tgt.BacklinksCount != 1 {
		t.Errorf("target backlinks_count = %v", tgt.BacklinksCount)
	}
	if *tgt.OutgoingEdgesCount != 0 {
		t.Errorf("target outgoing_edges_count = %d", *tgt.OutgoingEdgesCount)
	}
}

func TestStore_AddEdge_DefaultWeight(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-A", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-B", CategoryAnalyticalNodes))

	if err := s.AddEdge(&Edge{SourceMaterialID: "NODE-A", TargetMaterialID: "NODE-B", EdgeType: "supports"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	set, err := s.GetNodeEdges("NODE-A", DirectionOutgoing)
	if err != nil {
		t.Fatalf("GetNodeEdges: %v", err)
	}
	if len(set.Outgoing) != 1 {
		t.Fatalf("expected 1 outgoing edge, got %d", len(set.Outgoing))
	}
	if set.Outgoing[0].Weight != 1.0 {
		t.Errorf("weight should default to 1.0, got %v", set.Outgoing[0].Weight)
	}
}

func TestStore_AddEdge_MissingEndpoint(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-ONLY", CategoryAnalyticalNodes))

	err := s.AddEdge(&Edge{SourceMaterialID: "NODE-ONLY", TargetMaterialID: "NODE-GHOST", EdgeType: "references"})
	if !IsNotFound(err) {
		t.Errorf("missing target should be not-found, got %v", err)
	}

	err = s.AddEdge(&Edge{SourceMaterialID: "NODE-GHOST", TargetMaterialID: "NODE-ONLY", EdgeType: "references"})
	if !IsNotFound(err) {
		t.Errorf("missing source should be not-found, got %v", err)
	}

	// Failed attempts must not leave half-applied counters
	m, _ := s.GetMaterial("NODE-ONLY")
	if *m.BacklinksCount != 0 || *m.OutgoingEdgesCount != 0 {
		t.Errorf("counters moved on failed edge: backlinks=%d outgoing=%d",
			*m.BacklinksCount, *m.OutgoingEdgesCount)
	}
}

func TestStore_AddEdge_EmptyType(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-A", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-B", CategoryAnalyticalNodes))

	err := s.AddEdge(&Edge{SourceMaterialID: "NODE-A", TargetMaterialID: "NODE-B"})
	if !IsValidation(err) {
		t.Errorf("empty edge_type should fail validation, got %v", err)
	}
}

func TestStore_GetNodeEdges_Directions(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-HUB", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-IN", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-OUT", CategoryAnalyticalNodes))

	if err := s.AddEdge(&Edge{SourceMaterialID: "NODE-IN", TargetMaterialID: "NODE-HUB", EdgeType: "supports"}); err != nil {
		t.Fatalf("AddEdge incoming: %v", err)
	}
	if err := s.AddEdge(&Edge{SourceMaterialID: "NODE-HUB", TargetMaterialID: "NODE-OUT", EdgeType: "references"}); err != nil {
		t.Fatalf("AddEdge outgoing: %v", err)
	}

	both, err := s.GetNodeEdges("NODE-HUB", DirectionBoth)
	if err != nil {
		t.Fatalf("GetNodeEdges(both): %v", err)
	}
	if len(both.Incoming) != 1 || both.Incoming[0].PeerID != "NODE-IN" {
		t.Errorf("incoming = %v", both.Incoming)
	}
	if len(both.Outgoing) != 1 || both.Outgoing[0].PeerID != "NODE-OUT" {
		t.Errorf("outgoing = %v", both.Outgoing)
	}
	if both.Incoming[0].PeerTitle != "Material NODE-IN" {
		t.Errorf("peer title = %q", both.Incoming[0].PeerTitle)
	}

	in, err := s.GetNodeEdges("NODE-HUB", DirectionIncoming)
	if err != nil {
		t.Fatalf("GetNodeEdges(incoming): %v", err)
	}
	if len(in.Incoming) != 1 || len(in.Outgoing) != 0 {
		t.Errorf("incoming-only returned %d/%d", len(in.Incoming), len(in.Outgoing))
	}

	if _, err := s.GetNodeEdges("NODE-HUB", "sideways"); !IsValidation(err) {
		t.Errorf("invalid direction should fail validation, got %v", err)
	}
}

func TestStore_GetNodeEdges_UnknownNode(t *testing.T) {
	s := setupTestStore(t)

	set, err := s.GetNodeEdges("NODE-NOWHERE", DirectionBoth)
	if err != nil {
		t.Fatalf("GetNodeEdges: %v", err)
	}
	if len(set.Incoming) != 0 || len(set.Outgoing) != 0 {
		t.Errorf("unknown node should yield empty lists, got %+v", set)
	}
}

func TestStore_AddEdge_ParallelAndSelfLoop(t *testing.T) {
	s := setupTestStore(t)
	mustAdd(t, s, newTestMaterial("NODE-A", CategoryAnalyticalNodes))
	mustAdd(t, s, newTestMaterial("NODE-B", CategoryAnalyticalNodes))

	edges := []Edge{
		{SourceMaterialID: "NODE-A", TargetMaterialID: "NODE-B", EdgeType: "references"},
		{SourceMaterialID: "NODE-A", TargetMaterialID: "NODE-B", EdgeType: "supports"},
		{SourceMaterialID: "NODE-A", TargetMaterialID: "NODE-A", EdgeType: "references"},
	}
	for i := range edges {
		if err := s.AddEdge(&edges[i]); err != nil {
			t.Fatalf("AddEdge %d: %v", i, err)
		}
	}

	n, err := s.CountEdges()
	if err != nil {
		t.Fatalf("CountEdges: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 edges, got %d", n)
	}

	// Self-loop counts on both counters of the same node
	a, _ := s.GetMaterial("NODE-A")
	if *a.OutgoingEdgesCount != 3 || *a.BacklinksCount != 1 {
		t.Errorf("NODE-A counters: outgoing=%d backlinks=%d", *a.OutgoingEdgesCount, *a.BacklinksCount)
	}
}
