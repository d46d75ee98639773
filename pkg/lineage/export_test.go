package lineage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestStore_ExportJSONIncludesCurrentNode(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))

	raw, err := store.ExportJSON(a, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var graph CytoscapeGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var foundCurrent bool
	for _, n := range graph.Nodes {
		if n.Data.Type == "current" {
			foundCurrent = true
		}
	}
	if !foundCurrent {
		t.Fatal("expected a node of type current")
	}
	if len(graph.Nodes) != 2 || len(graph.Edges) != 1 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d nodes %d edges", len(graph.Nodes), len(graph.Edges))
	}
}

func TestStore_ExportJSONRespectsDepth(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))

	raw, err := store.ExportJSON(a, 1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var graph CytoscapeGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(graph.Nodes) != 2 {
		t.Fatalf("expected 2 nodes with depth=1, got %d", len(graph.Nodes))
	}
}

func TestStore_ExportDOTContainsEdges(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))

	dot := store.ExportDOT(a, 0)
	if !strings.HasPrefix(dot, "digraph lineage {") {
		t.Fatalf("expected DOT digraph header, got %q", dot)
	}
	if !strings.Contains(dot, "->") {
		t.Fatal("expected at least one edge in DOT output")
	}
}

func TestStore_ExportGraphMLIsWellFormed(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))

	gml := store.ExportGraphML(a, 0)
	if !strings.Contains(gml, "<graphml") || !strings.Contains(gml, "</graphml>") {
		t.Fatalf("expected well-formed graphml wrapper, got %q", gml)
	}
	if !strings.Contains(gml, "<node") || !strings.Contains(gml, "<edge") {
		t.Fatal("expected node and edge elements")
	}
}
