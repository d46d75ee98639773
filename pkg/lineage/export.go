package lineage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// CytoscapeNode is one node in Cytoscape.js's element format.
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData carries a node's identity and role in the subgraph.
type CytoscapeNodeData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "schema" or "external"
	Type string `json:"type"` // "current", "upstream", "downstream"
}

// CytoscapeEdge is one edge in Cytoscape.js's element format.
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData carries an edge's endpoints and relation.
type CytoscapeEdgeData struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// CytoscapeGraph is a full exported subgraph in Cytoscape.js's element
// format.
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// ExportJSON renders the neighbourhood of schema (both directions, bounded
// by maxDepth) as a Cytoscape.js-compatible graph document.
func (s *Store) ExportJSON(schema uuid.UUID, maxDepth int) ([]byte, error) {
	graph := s.buildCytoscapeGraph(schema, maxDepth)
	return json.MarshalIndent(graph, "", "  ")
}

func (s *Store) buildCytoscapeGraph(schema uuid.UUID, maxDepth int) CytoscapeGraph {
	graph := CytoscapeGraph{Nodes: []CytoscapeNode{}, Edges: []CytoscapeEdge{}}
	visited := map[string]bool{}

	root := nodeKey(schema)
	graph.Nodes = append(graph.Nodes, CytoscapeNode{
		Data: CytoscapeNodeData{ID: root, Name: root, Kind: "schema", Type: "current"},
	})
	visited[root] = true

	up := s.Transitive(schema, DirectionUpstream, maxDepth)
	s.appendCytoscapeSide(&graph, visited, up, "upstream")

	down := s.Transitive(schema, DirectionDownstream, maxDepth)
	s.appendCytoscapeSide(&graph, visited, down, "downstream")

	sort.Slice(graph.Nodes, func(i, j int) bool { return graph.Nodes[i].Data.ID < graph.Nodes[j].Data.ID })
	sort.Slice(graph.Edges, func(i, j int) bool { return graph.Edges[i].Data.ID < graph.Edges[j].Data.ID })
	return graph
}

func (s *Store) appendCytoscapeSide(graph *CytoscapeGraph, visited map[string]bool, result TransitiveResult, side string) {
	for _, n := range result.Nodes {
		key := n.String()
		if !visited[key] {
			graph.Nodes = append(graph.Nodes, CytoscapeNode{
				Data: CytoscapeNodeData{ID: key, Name: key, Kind: string(n.Kind), Type: side},
			})
			visited[key] = true
		}
	}
	for _, e := range result.Edges {
		from := nodeKey(e.From)
		to := e.To.String()
		edgeID := fmt.Sprintf("%s->%s:%s", from, to, e.Relation)
		graph.Edges = append(graph.Edges, CytoscapeEdge{
			Data: CytoscapeEdgeData{ID: edgeID, Source: from, Target: to, Relation: string(e.Relation)},
		})
	}
}

func nodeKey(schema uuid.UUID) string {
	return "schema:" + schema.String()
}

// ExportDOT renders the same neighbourhood as Graphviz DOT source.
func (s *Store) ExportDOT(schema uuid.UUID, maxDepth int) string {
	graph := s.buildCytoscapeGraph(schema, maxDepth)

	var buf bytes.Buffer
	buf.WriteString("digraph lineage {\n")
	for _, n := range graph.Nodes {
		buf.WriteString(fmt.Sprintf("  %q [kind=%q,type=%q];\n", n.Data.ID, n.Data.Kind, n.Data.Type))
	}
	for _, e := range graph.Edges {
		buf.WriteString(fmt.Sprintf("  %q -> %q [relation=%q];\n", e.Data.Source, e.Data.Target, e.Data.Relation))
	}
	buf.WriteString("}\n")
	return buf.String()
}

// ExportGraphML renders the same neighbourhood as a minimal GraphML
// document, for tools that don't speak DOT or Cytoscape JSON.
func (s *Store) ExportGraphML(schema uuid.UUID, maxDepth int) string {
	graph := s.buildCytoscapeGraph(schema, maxDepth)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<graphml xmlns="http://graphml.graphdrawing.org/xmlns">` + "\n")
	buf.WriteString("  <graph edgedefault=\"directed\">\n")
	for _, n := range graph.Nodes {
		buf.WriteString(fmt.Sprintf("    <node id=%q/>\n", n.Data.ID))
	}
	for i, e := range graph.Edges {
		buf.WriteString(fmt.Sprintf("    <edge id=\"e%d\" source=%q target=%q/>\n", i, e.Data.Source, e.Data.Target))
	}
	buf.WriteString("  </graph>\n</graphml>\n")
	return buf.String()
}
