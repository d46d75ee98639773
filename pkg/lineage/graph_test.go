package lineage

import (
	"testing"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

func edge(from, to uuid.UUID) model.Edge {
	return model.Edge{From: from, To: model.NodeID{Kind: model.NodeSchema, SchemaID: to}, Relation: model.RelationDependsOn}
}

func TestStore_AddEdgeIsIdempotent(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()

	store.AddEdge(edge(a, b))
	store.AddEdge(edge(a, b))

	if len(store.Upstream(a)) != 1 {
		t.Fatalf("expected 1 edge after duplicate add, got %d", len(store.Upstream(a)))
	}
}

func TestStore_UpstreamDownstreamAreInverse(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))

	if len(store.Upstream(a)) != 1 {
		t.Fatal("expected a to have one upstream edge")
	}
	down := store.Downstream(model.NodeID{Kind: model.NodeSchema, SchemaID: b})
	if len(down) != 1 || down[0].From != a {
		t.Fatalf("expected b's downstream to include a, got %+v", down)
	}
}

func TestStore_RemoveEdgeNotFound(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()

	err := store.RemoveEdge(a, model.NodeID{Kind: model.NodeSchema, SchemaID: b})
	if err == nil {
		t.Fatal("expected not_found error removing a nonexistent edge")
	}
}

func TestStore_TransitiveUpstreamBFS(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))

	result := store.Transitive(a, DirectionUpstream, 0)
	if len(result.Nodes) != 2 {
		t.Fatalf("expected 2 upstream nodes, got %d", len(result.Nodes))
	}
	bKey := (model.NodeID{Kind: model.NodeSchema, SchemaID: b}).String()
	cKey := (model.NodeID{Kind: model.NodeSchema, SchemaID: c}).String()
	if result.Depth[bKey] != 1 || result.Depth[cKey] != 2 {
		t.Fatalf("unexpected depths: %+v", result.Depth)
	}
}

func TestStore_TransitiveRespectsMaxDepth(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))

	result := store.Transitive(a, DirectionUpstream, 1)
	if len(result.Nodes) != 1 {
		t.Fatalf("expected 1 node within depth 1, got %d", len(result.Nodes))
	}
}

func TestStore_TransitiveDownstreamIsDependents(t *testing.T) {
	store := NewStore()
	common, user, order, admin := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(user, common))
	store.AddEdge(edge(order, common))
	store.AddEdge(edge(admin, user))

	result := store.Transitive(common, DirectionDownstream, 0)
	if len(result.Nodes) != 3 {
		t.Fatalf("expected 3 dependents (user, order, admin), got %d", len(result.Nodes))
	}
}

func TestStore_ShortestPathFound(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))

	path := store.ShortestPath(a, c)
	if len(path) != 3 || path[0] != a || path[2] != c {
		t.Fatalf("expected path a->b->c, got %+v", path)
	}
}

func TestStore_ShortestPathUnreachable(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.RegisterSchema(a)
	store.RegisterSchema(b)

	if path := store.ShortestPath(a, b); path != nil {
		t.Fatalf("expected nil path for unreachable nodes, got %+v", path)
	}
}

func TestStore_DetectCyclesDirect(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, a))

	cycles := store.DetectCycles()
	if len(cycles) != 1 || len(cycles[0].Members) != 2 {
		t.Fatalf("expected one 2-member cycle, got %+v", cycles)
	}
}

func TestStore_DetectCyclesIndirect(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))
	store.AddEdge(edge(c, a))

	cycles := store.DetectCycles()
	if len(cycles) != 1 || len(cycles[0].Members) != 3 {
		t.Fatalf("expected one 3-member cycle, got %+v", cycles)
	}
}

func TestStore_DetectCyclesNoneOnDAG(t *testing.T) {
	store := NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, c))

	if cycles := store.DetectCycles(); len(cycles) != 0 {
		t.Fatalf("expected no cycles in a DAG, got %+v", cycles)
	}
}

func TestStore_TopologicalSortOrdersDependenciesFirst(t *testing.T) {
	store := NewStore()
	base, common, user := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(user, common))
	store.AddEdge(edge(common, base))

	order, err := store.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := map[uuid.UUID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[base] >= pos[common] || pos[common] >= pos[user] {
		t.Fatalf("expected base before common before user, got order %+v", order)
	}
}

func TestStore_TopologicalSortFailsOnCycle(t *testing.T) {
	store := NewStore()
	a, b := uuid.New(), uuid.New()
	store.AddEdge(edge(a, b))
	store.AddEdge(edge(b, a))

	if _, err := store.TopologicalSort(); err == nil {
		t.Fatal("expected cycle_present error")
	}
}

func TestStore_RootsAndLeaves(t *testing.T) {
	store := NewStore()
	base, common, user := uuid.New(), uuid.New(), uuid.New()
	store.AddEdge(edge(user, common))
	store.AddEdge(edge(common, base))

	roots := store.Roots() // out-degree zero: base depends on nothing
	if len(roots) != 1 || roots[0] != base {
		t.Fatalf("expected base as the sole root, got %+v", roots)
	}

	leaves := store.Leaves() // in-degree zero: nothing depends on user
	if len(leaves) != 1 || leaves[0] != user {
		t.Fatalf("expected user as the sole leaf, got %+v", leaves)
	}
}
