package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/registry-core/pkg/model"
)

func setupEngineTest(t *testing.T) (*Engine, sqlmock.Sqlmock, *miniredis.Miniredis, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)

	l2, err := newL2Cache(mr.Addr(), "", 0, "registry-test:")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.L2Deadline = time.Second
	engine := NewEngine(cfg, &l4Store{db: db}, nil, l2)

	cleanup := func() {
		db.Close()
		l2.Close()
		mr.Close()
	}
	return engine, mock, mr, cleanup
}

func TestEngine_GetPopulatesL1OnL4Hit(t *testing.T) {
	engine, mock, _, cleanup := setupEngineTest(t)
	defer cleanup()
	schema := newTestSchema()

	mock.ExpectQuery("SELECT").WillReturnRows(schemaRow(schema))

	got, tier, err := engine.Get(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierL4, tier)
	require.Equal(t, schema.Subject, got.Subject)

	// second read is served from L1 without touching L4 again.
	got2, tier2, err := engine.Get(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierL1, tier2)
	require.Equal(t, schema.Subject, got2.Subject)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_GetServedFromL2WhenPresent(t *testing.T) {
	engine, _, _, cleanup := setupEngineTest(t)
	defer cleanup()
	schema := newTestSchema()

	data, err := encodeSchema(schema)
	require.NoError(t, err)
	require.NoError(t, engine.l2.SetEX(context.Background(), schemaKey(schema.ID.String()), data, time.Minute))

	got, tier, err := engine.Get(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierL2, tier)
	require.Equal(t, schema.Subject, got.Subject)
}

func TestEngine_RegisterWritesThroughAllTiers(t *testing.T) {
	engine, mock, _, cleanup := setupEngineTest(t)
	defer cleanup()
	schema := newTestSchema()

	mock.ExpectExec("INSERT INTO schemas").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, engine.Register(context.Background(), schema))

	_, ok := engine.l1.Get(schema.ID)
	require.True(t, ok)

	_, found, err := engine.l2.Get(context.Background(), schemaKey(schema.ID.String()))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_SoftDeleteInvalidatesUpperTiers(t *testing.T) {
	engine, mock, _, cleanup := setupEngineTest(t)
	defer cleanup()
	schema := newTestSchema()
	engine.l1.Put(schema)
	data, _ := encodeSchema(schema)
	require.NoError(t, engine.l2.Set(context.Background(), schemaKey(schema.ID.String()), data))

	mock.ExpectExec("UPDATE schemas").WillReturnResult(sqlmock.NewResult(1, 1))
	deletedSchema := *schema
	deletedSchema.State = model.StateDeleted
	mock.ExpectQuery("SELECT").WillReturnRows(schemaRow(&deletedSchema))

	require.NoError(t, engine.SoftDelete(context.Background(), schema.ID))

	_, ok := engine.l1.Get(schema.ID)
	require.False(t, ok, "expected L1 entry invalidated")

	_, found, err := engine.l2.Get(context.Background(), schemaKey(schema.ID.String()))
	require.NoError(t, err)
	require.False(t, found, "expected L2 entry invalidated")
}
