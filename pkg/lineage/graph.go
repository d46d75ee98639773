package lineage

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

// Direction selects which adjacency a traversal follows.
type Direction string

const (
	// DirectionUpstream follows outgoing edges: "what does this node
	// depend on".
	DirectionUpstream Direction = "upstream"
	// DirectionDownstream follows incoming edges: "what depends on this
	// node".
	DirectionDownstream Direction = "downstream"
)

// Store is the process-wide directed multigraph of schema and external
// entity nodes. All mutation is serialised by mu; reads take the read
// lock only. No I/O occurs while mu is held.
type Store struct {
	mu sync.RWMutex

	schemaNodes   map[uuid.UUID]bool
	externalNodes map[string]*model.ExternalEntity

	// outgoing[from] holds every edge whose From == from.
	outgoing map[uuid.UUID][]model.Edge
	// incoming[to.String()] holds every edge whose To == that node.
	incoming map[string][]model.Edge

	metrics *observability.Metrics
}

// NewStore builds an empty graph.
func NewStore() *Store {
	return &Store{
		schemaNodes:   map[uuid.UUID]bool{},
		externalNodes: map[string]*model.ExternalEntity{},
		outgoing:      map[uuid.UUID][]model.Edge{},
		incoming:      map[string][]model.Edge{},
	}
}

// WithMetrics attaches Prometheus instrumentation; every mutation below
// starts recording against it and the node/edge gauges are kept current.
// Safe to skip in tests that don't care about metrics.
func (s *Store) WithMetrics(m *observability.Metrics) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	return s
}

// recordMutation must be called with mu held.
func (s *Store) recordMutation(kind string) {
	if s.metrics == nil {
		return
	}
	s.metrics.LineageMutationsTotal.WithLabelValues(kind).Inc()
	s.metrics.LineageNodesTotal.Set(float64(len(s.schemaNodes) + len(s.externalNodes)))

	edges := 0
	for _, es := range s.outgoing {
		edges += len(es)
	}
	s.metrics.LineageEdgesTotal.Set(float64(edges))
}

// RegisterSchema ensures id is known to the graph even before it has any
// edges, so it can appear in Roots/Leaves and export.
func (s *Store) RegisterSchema(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaNodes[id] = true
	s.recordMutation("register_schema")
}

// RegisterExternal ensures an external entity node is known to the graph.
func (s *Store) RegisterExternal(e model.ExternalEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.externalNodes[e.ID] = &e
	s.recordMutation("register_external")
}

// AddEdge inserts (from, to, relation), idempotent on the triple.
func (s *Store) AddEdge(edge model.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemaNodes[edge.From] = true
	if edge.To.Kind == model.NodeSchema {
		s.schemaNodes[edge.To.SchemaID] = true
	}

	key := edge.To.String()
	for _, existing := range s.outgoing[edge.From] {
		if existing.To == edge.To && existing.Relation == edge.Relation {
			return
		}
	}
	s.outgoing[edge.From] = append(s.outgoing[edge.From], edge)
	s.incoming[key] = append(s.incoming[key], edge)
	s.recordMutation("add_edge")
}

// RemoveEdge deletes every edge from "from" to "to" regardless of
// relation. Fails with not_found if none existed.
func (s *Store) RemoveEdge(from uuid.UUID, to model.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := to.String()
	found := false

	filtered := s.outgoing[from][:0:0]
	for _, e := range s.outgoing[from] {
		if e.To == to {
			found = true
			continue
		}
		filtered = append(filtered, e)
	}
	s.outgoing[from] = filtered

	filteredIn := s.incoming[key][:0:0]
	for _, e := range s.incoming[key] {
		if e.From == from {
			continue
		}
		filteredIn = append(filteredIn, e)
	}
	s.incoming[key] = filteredIn

	if !found {
		return registryerr.New(registryerr.NotFound, "lineage edge not found")
	}
	s.recordMutation("remove_edge")
	return nil
}

// Upstream returns the direct edges out of a schema: what it depends on.
func (s *Store) Upstream(schema uuid.UUID) []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Edge(nil), s.outgoing[schema]...)
}

// Downstream returns the direct edges into node: what depends on it.
func (s *Store) Downstream(node model.NodeID) []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Edge(nil), s.incoming[node.String()]...)
}

// HasSchema reports whether id is a known node.
func (s *Store) HasSchema(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaNodes[id]
}

// TransitiveResult is the subgraph returned by Transitive: the nodes
// reached, the edges traversed, and each reached node's BFS depth.
type TransitiveResult struct {
	Nodes []model.NodeID
	Edges []model.Edge
	Depth map[string]int
}

// Transitive runs BFS from schema in the given direction, bounded by
// maxDepth (0 means unbounded).
func (s *Store) Transitive(schema uuid.UUID, dir Direction, maxDepth int) TransitiveResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := model.NodeID{Kind: model.NodeSchema, SchemaID: schema}
	visited := map[string]int{start.String(): 0}
	var edges []model.Edge
	queue := []model.NodeID{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := visited[cur.String()]
		if maxDepth > 0 && depth >= maxDepth {
			continue
		}

		var neighbours []model.Edge
		if dir == DirectionUpstream {
			if cur.Kind == model.NodeSchema {
				neighbours = s.outgoing[cur.SchemaID]
			}
		} else {
			neighbours = s.incoming[cur.String()]
		}

		for _, e := range neighbours {
			var next model.NodeID
			if dir == DirectionUpstream {
				next = e.To
			} else {
				next = model.NodeID{Kind: model.NodeSchema, SchemaID: e.From}
			}
			edges = append(edges, e)
			if _, seen := visited[next.String()]; !seen {
				visited[next.String()] = depth + 1
				queue = append(queue, next)
			}
		}
	}

	result := TransitiveResult{Depth: visited, Edges: edges}
	for key := range visited {
		if key == start.String() {
			continue
		}
		result.Nodes = append(result.Nodes, decodeNodeID(key))
	}
	sort.Slice(result.Nodes, func(i, j int) bool { return result.Nodes[i].String() < result.Nodes[j].String() })
	return result
}

func decodeNodeID(s string) model.NodeID {
	const schemaPrefix = "schema:"
	if len(s) > len(schemaPrefix) && s[:len(schemaPrefix)] == schemaPrefix {
		id, _ := uuid.Parse(s[len(schemaPrefix):])
		return model.NodeID{Kind: model.NodeSchema, SchemaID: id}
	}
	const externalPrefix = "external:"
	return model.NodeID{Kind: model.NodeExternal, ExternalID: s[len(externalPrefix):]}
}

// ShortestPath finds the first BFS path from "from" to "to" following
// outgoing edges. Returns nil if unreachable.
func (s *Store) ShortestPath(from, to uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from == to {
		return []uuid.UUID{from}
	}

	prev := map[uuid.UUID]uuid.UUID{}
	visited := map[uuid.UUID]bool{from: true}
	queue := []uuid.UUID{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.outgoing[cur] {
			if e.To.Kind != model.NodeSchema {
				continue
			}
			next := e.To.SchemaID
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			if next == to {
				return reconstructPath(prev, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstructPath(prev map[uuid.UUID]uuid.UUID, from, to uuid.UUID) []uuid.UUID {
	path := []uuid.UUID{to}
	cur := to
	for cur != from {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Cycle is one strongly connected component of size > 1, or a size-1
// component with a self-loop.
type Cycle struct {
	Members []uuid.UUID
}

// DetectCycles computes strongly connected components (Tarjan's
// algorithm) over the schema-node subgraph and returns every component
// that constitutes a cycle.
func (s *Store) DetectCycles() []Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := &tarjan{
		index:    map[uuid.UUID]int{},
		lowlink:  map[uuid.UUID]int{},
		onStack:  map[uuid.UUID]bool{},
		outgoing: s.outgoing,
	}

	ids := make([]uuid.UUID, 0, len(s.schemaNodes))
	for id := range s.schemaNodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}

	var cycles []Cycle
	for _, comp := range t.components {
		if len(comp) > 1 {
			cycles = append(cycles, Cycle{Members: comp})
			continue
		}
		id := comp[0]
		for _, e := range s.outgoing[id] {
			if e.To.Kind == model.NodeSchema && e.To.SchemaID == id {
				cycles = append(cycles, Cycle{Members: comp})
				break
			}
		}
	}
	return cycles
}

type tarjan struct {
	index, lowlink map[uuid.UUID]int
	onStack        map[uuid.UUID]bool
	stack          []uuid.UUID
	counter        int
	components     [][]uuid.UUID
	outgoing       map[uuid.UUID][]model.Edge
}

func (t *tarjan) strongConnect(v uuid.UUID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.outgoing[v] {
		if e.To.Kind != model.NodeSchema {
			continue
		}
		w := e.To.SchemaID
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []uuid.UUID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}

// TopologicalSort returns schema ids in dependency order (a schema
// appears after everything it depends on). Fails with cycle_present if
// any cycle exists.
func (s *Store) TopologicalSort() ([]uuid.UUID, error) {
	if cycles := s.DetectCycles(); len(cycles) > 0 {
		return nil, registryerr.New(registryerr.CyclePresent, "lineage graph contains a cycle")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inDegree := map[uuid.UUID]int{}
	for id := range s.schemaNodes {
		inDegree[id] = 0
	}
	for _, edges := range s.outgoing {
		for _, e := range edges {
			if e.To.Kind == model.NodeSchema {
				inDegree[e.To.SchemaID]++
			}
		}
	}

	var queue []uuid.UUID
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].String() < queue[j].String() })

	var order []uuid.UUID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var next []uuid.UUID
		for _, e := range s.outgoing[n] {
			if e.To.Kind != model.NodeSchema {
				continue
			}
			inDegree[e.To.SchemaID]--
			if inDegree[e.To.SchemaID] == 0 {
				next = append(next, e.To.SchemaID)
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i].String() < next[j].String() })
		queue = append(queue, next...)
	}

	// The walk above starts from schemas nothing depends on; reverse it so
	// every schema follows its dependencies.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Roots returns out-degree-zero schema nodes (depend on nothing further).
func (s *Store) Roots() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id := range s.schemaNodes {
		if len(s.outgoing[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Leaves returns in-degree-zero schema nodes (nothing depends on them).
func (s *Store) Leaves() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id := range s.schemaNodes {
		key := (model.NodeID{Kind: model.NodeSchema, SchemaID: id}).String()
		if len(s.incoming[key]) == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
