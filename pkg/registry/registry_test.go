package registry

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/registry-core/pkg/analytics"
	"github.com/schemaforge/registry-core/pkg/compatibility"
	"github.com/schemaforge/registry-core/pkg/lineage"
	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
	"github.com/schemaforge/registry-core/pkg/storage"
)

// fakeRelationalStore is an in-memory storage.RelationalStore used to
// exercise the façade without a real L4 connection. It is deliberately
// minimal: only the methods Registry actually calls do real work.
type fakeRelationalStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.Schema
	deleted map[uuid.UUID]bool
}

func newFakeRelationalStore() *fakeRelationalStore {
	return &fakeRelationalStore{
		byID:    make(map[uuid.UUID]*model.Schema),
		deleted: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRelationalStore) Register(_ context.Context, schema *model.Schema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[schema.ID] = schema
	return nil
}

func (f *fakeRelationalStore) GetByID(_ context.Context, id uuid.UUID) (*model.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || f.deleted[id] {
		return nil, registryerr.Newf(registryerr.NotFound, "schema %s not found", id)
	}
	return s, nil
}

func (f *fakeRelationalStore) GetByVersion(_ context.Context, subject string, version model.Version) (*model.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.Subject == subject && s.Version == version {
			return s, nil
		}
	}
	return nil, registryerr.Newf(registryerr.NotFound, "subject %q version %s not found", subject, version)
}

func (f *fakeRelationalStore) ListBySubject(_ context.Context, subject string) ([]*model.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Schema
	for _, s := range f.byID {
		if s.Subject == subject && !f.deleted[s.ID] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) > 0 })
	return out, nil
}

func (f *fakeRelationalStore) Search(context.Context, model.SearchQuery) ([]*model.Schema, error) {
	return nil, nil
}

func (f *fakeRelationalStore) UpdateState(_ context.Context, id uuid.UUID, state model.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return registryerr.Newf(registryerr.NotFound, "schema %s not found", id)
	}
	s.State = state
	return nil
}

func (f *fakeRelationalStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return registryerr.Newf(registryerr.NotFound, "schema %s not found", id)
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeRelationalStore) ListSubjects(context.Context) ([]string, error) { return nil, nil }

func (f *fakeRelationalStore) LatestVersion(_ context.Context, subject string) (*model.Schema, error) {
	versions, err := f.ListBySubject(context.Background(), subject)
	if err != nil || len(versions) == 0 {
		return nil, registryerr.Newf(registryerr.NotFound, "subject %q not found", subject)
	}
	return versions[0], nil
}

func (f *fakeRelationalStore) Statistics(context.Context) (model.Statistics, error) {
	return model.Statistics{}, nil
}

func (f *fakeRelationalStore) BeginTx(context.Context) (storage.Tx, error) {
	return nil, registryerr.Newf(registryerr.Internal, "transactions unsupported in fake store")
}

func (f *fakeRelationalStore) HealthCheck(context.Context) error { return nil }

func (f *fakeRelationalStore) Close() error { return nil }

func newTestSchema(subject string) *model.Schema {
	return &model.Schema{
		ID:          uuid.New(),
		Subject:     subject,
		Version:     model.Version{Major: 1, Minor: 0, Patch: 0},
		Format:      model.FormatJSONSchema,
		Content:     []byte(`{"type":"object"}`),
		ContentHash: "abc123",
		State:       model.StateActive,
		Metadata: model.Metadata{
			Owner:     "team-orders",
			CreatedAt: time.Now(),
			CreatedBy: "ci",
		},
	}
}

// setupRegistryTest wires a Registry over an in-memory L4 fake (no L2/L3)
// and the real in-process compatibility/lineage/analytics engines.
func setupRegistryTest(t *testing.T) (*Registry, *fakeRelationalStore) {
	t.Helper()

	store := newFakeRelationalStore()
	storageEngine := storage.NewEngine(storage.DefaultConfig(), store, nil, nil)

	reg := New(
		compatibility.NewEngine(compatibility.DefaultConfig()),
		lineage.NewStore(),
		analytics.NewEngine(analytics.DefaultConfig()),
		storageEngine,
	)
	t.Cleanup(func() { reg.Close() })

	return reg, store
}

func TestRegistry_RegisterSchema_FirstVersionIsAlwaysCompatible(t *testing.T) {
	reg, store := setupRegistryTest(t)
	schema := newTestSchema("orders.created")

	result, err := reg.RegisterSchema(context.Background(), schema, model.ModeBackward)
	require.NoError(t, err)
	require.True(t, result.IsCompatible)

	stored, err := store.GetByID(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, schema.Subject, stored.Subject)
}

func TestRegistry_RegisterSchema_IncompatibleSchemaIsNotWritten(t *testing.T) {
	reg, store := setupRegistryTest(t)

	prior := newTestSchema("orders.created")
	prior.Content = []byte(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`)
	require.NoError(t, store.Register(context.Background(), prior))

	next := newTestSchema("orders.created")
	next.Version = model.Version{Major: 1, Minor: 1, Patch: 0}
	next.Content = []byte(`{"type":"object","properties":{}}`)

	result, err := reg.RegisterSchema(context.Background(), next, model.ModeBackward)
	require.Error(t, err)
	require.False(t, result.IsCompatible)

	_, getErr := store.GetByID(context.Background(), next.ID)
	require.Error(t, getErr, "incompatible schema must not be written")
}

func TestRegistry_GetSchema_ReadsThroughStorage(t *testing.T) {
	reg, store := setupRegistryTest(t)
	schema := newTestSchema("orders.created")
	require.NoError(t, store.Register(context.Background(), schema))

	got, tier, err := reg.GetSchema(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierL4, tier)
	require.Equal(t, schema.Subject, got.Subject)
}

func TestRegistry_GetSchema_UnknownIDIsNotFound(t *testing.T) {
	reg, _ := setupRegistryTest(t)

	_, _, err := reg.GetSchema(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}

func TestRegistry_DeleteSchema_SoftDeletesThroughStorage(t *testing.T) {
	reg, store := setupRegistryTest(t)
	schema := newTestSchema("orders.created")
	require.NoError(t, store.Register(context.Background(), schema))

	require.NoError(t, reg.DeleteSchema(context.Background(), schema.ID))

	_, err := store.GetByID(context.Background(), schema.ID)
	require.Error(t, err)
}

func TestRegistry_AnalyzeImpact_NoDependentsIsLowRisk(t *testing.T) {
	reg, _ := setupRegistryTest(t)

	target := uuid.New()
	reg.Lineage.RegisterSchema(target)

	report, err := reg.AnalyzeImpact(context.Background(), target, model.ChangeFieldRemove)
	require.NoError(t, err)
	require.Equal(t, model.RiskLow, report.RiskLevel)
}
