package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

func newTestSchema() *model.Schema {
	return &model.Schema{
		ID:          uuid.New(),
		Subject:     "orders.created",
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

func schemaRow(s *model.Schema) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject", "major", "minor", "patch", "prerelease", "build",
		"format", "content", "content_hash", "state", "owner", "tags", "description",
		"compatibility_mode", "created_at", "created_by", "deleted_at",
	}).AddRow(
		s.ID, s.Subject, s.Version.Major, s.Version.Minor, s.Version.Patch,
		s.Version.Prerelease, s.Version.Build,
		s.Format, s.Content, s.ContentHash, s.State, s.Metadata.Owner, []byte("[]"), s.Metadata.Description,
		s.Metadata.CompatibilityMode, s.Metadata.CreatedAt, s.Metadata.CreatedBy, nil,
	)
}

func TestL4Store_RegisterSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &l4Store{db: db}
	schema := newTestSchema()

	mock.ExpectExec("INSERT INTO schemas").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Register(context.Background(), schema))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestL4Store_RegisterDuplicateReturnsAlreadyExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &l4Store{db: db}
	schema := newTestSchema()

	mock.ExpectExec("INSERT INTO schemas").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = store.Register(context.Background(), schema)
	require.Error(t, err)
	require.Equal(t, registryerr.AlreadyExists, registryerr.KindOf(err))
}

func TestL4Store_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &l4Store{db: db}

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{
		"id", "subject", "major", "minor", "patch", "prerelease", "build",
		"format", "content", "content_hash", "state", "owner", "tags", "description",
		"compatibility_mode", "created_at", "created_by", "deleted_at",
	}))

	_, err = store.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}

func TestL4Store_GetByIDFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &l4Store{db: db}
	schema := newTestSchema()

	mock.ExpectQuery("SELECT").WillReturnRows(schemaRow(schema))

	got, err := store.GetByID(context.Background(), schema.ID)
	require.NoError(t, err)
	require.Equal(t, schema.Subject, got.Subject)
}

func TestL4Store_SoftDeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &l4Store{db: db}

	mock.ExpectExec("UPDATE schemas").WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.SoftDelete(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}
