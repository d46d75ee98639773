package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

var l4Tracer = otel.Tracer("registry-core/storage/l4")

// l4Store is the relational source of truth. Every other tier is a
// rebuildable projection of this table; on any discrepancy L4 wins.
type l4Store struct {
	db *sql.DB
}

func newL4Store(dsn string, maxConns, minConns int, pingTimeout time.Duration) (*l4Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &l4Store{db: db}, nil
}

const schemaColumns = `id, subject, major, minor, patch, prerelease, build,
	format, content, content_hash, state, owner, tags, description,
	compatibility_mode, created_at, created_by, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchema(row rowScanner) (*model.Schema, error) {
	var s model.Schema
	var tagsJSON []byte
	var deletedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Subject, &s.Version.Major, &s.Version.Minor, &s.Version.Patch,
		&s.Version.Prerelease, &s.Version.Build,
		&s.Format, &s.Content, &s.ContentHash, &s.State,
		&s.Metadata.Owner, &tagsJSON, &s.Metadata.Description,
		&s.Metadata.CompatibilityMode, &s.Metadata.CreatedAt, &s.Metadata.CreatedBy, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &s.Metadata.Tags)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.Metadata.DeletedAt = &t
	}
	return &s, nil
}

func (s *l4Store) Register(ctx context.Context, schema *model.Schema) error {
	ctx, span := l4Tracer.Start(ctx, "Register", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("schema.subject", schema.Subject),
	))
	defer span.End()

	tags, _ := json.Marshal(schema.Metadata.Tags)
	query := `
		INSERT INTO schemas (id, subject, major, minor, patch, prerelease, build,
			format, content, content_hash, state, owner, tags, description,
			compatibility_mode, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := s.db.ExecContext(ctx, query,
		schema.ID, schema.Subject, schema.Version.Major, schema.Version.Minor, schema.Version.Patch,
		schema.Version.Prerelease, schema.Version.Build, schema.Format, schema.Content, schema.ContentHash,
		schema.State, schema.Metadata.Owner, tags, schema.Metadata.Description,
		schema.Metadata.CompatibilityMode, schema.Metadata.CreatedAt, schema.Metadata.CreatedBy,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
		if isUniqueViolation(err) {
			return registryerr.Wrap(registryerr.AlreadyExists, err, "schema already registered for this subject and version")
		}
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "register schema")
	}
	span.SetStatus(codes.Ok, "registered")
	return nil
}

func (s *l4Store) GetByID(ctx context.Context, id uuid.UUID) (*model.Schema, error) {
	ctx, span := l4Tracer.Start(ctx, "GetByID")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM schemas WHERE id = $1`, id)
	schema, err := scanSchema(row)
	if err == sql.ErrNoRows {
		return nil, registryerr.Newf(registryerr.NotFound, "schema %s not found", id)
	}
	if err != nil {
		span.RecordError(err)
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "get schema by id")
	}
	return schema, nil
}

func (s *l4Store) GetByVersion(ctx context.Context, subject string, version model.Version) (*model.Schema, error) {
	ctx, span := l4Tracer.Start(ctx, "GetByVersion")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+`
		FROM schemas WHERE subject = $1 AND major = $2 AND minor = $3 AND patch = $4`,
		subject, version.Major, version.Minor, version.Patch)
	schema, err := scanSchema(row)
	if err == sql.ErrNoRows {
		return nil, registryerr.Newf(registryerr.NotFound, "no version %s for subject %s", version, subject)
	}
	if err != nil {
		span.RecordError(err)
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "get schema by version")
	}
	return schema, nil
}

func (s *l4Store) ListBySubject(ctx context.Context, subject string) ([]*model.Schema, error) {
	ctx, span := l4Tracer.Start(ctx, "ListBySubject")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+schemaColumns+`
		FROM schemas WHERE subject = $1 ORDER BY major DESC, minor DESC, patch DESC`, subject)
	if err != nil {
		span.RecordError(err)
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "list by subject")
	}
	defer rows.Close()
	return scanSchemaRows(rows)
}

func (s *l4Store) Search(ctx context.Context, query model.SearchQuery) ([]*model.Schema, error) {
	ctx, span := l4Tracer.Start(ctx, "Search")
	defer span.End()

	sqlQuery := `SELECT ` + schemaColumns + ` FROM schemas WHERE 1=1`
	var args []any
	argN := 1

	if query.SubjectPattern != "" {
		sqlQuery += fmt.Sprintf(" AND subject LIKE $%d", argN)
		args = append(args, strings.ReplaceAll(query.SubjectPattern, "*", "%"))
		argN++
	}
	if query.Format != "" {
		sqlQuery += fmt.Sprintf(" AND format = $%d", argN)
		args = append(args, query.Format)
		argN++
	}
	if query.Owner != "" {
		sqlQuery += fmt.Sprintf(" AND owner = $%d", argN)
		args = append(args, query.Owner)
		argN++
	}
	if query.State != "" {
		sqlQuery += fmt.Sprintf(" AND state = $%d", argN)
		args = append(args, query.State)
		argN++
	}
	for _, tag := range query.Tags {
		sqlQuery += fmt.Sprintf(" AND tags @> $%d", argN)
		tagJSON, _ := json.Marshal([]string{tag})
		args = append(args, tagJSON)
		argN++
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sqlQuery += " ORDER BY " + pq.QuoteIdentifier(sortBy)
	if query.Descending {
		sqlQuery += " DESC"
	}
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, query.Limit)
		argN++
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		span.RecordError(err)
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "search schemas")
	}
	defer rows.Close()
	return scanSchemaRows(rows)
}

func (s *l4Store) UpdateState(ctx context.Context, id uuid.UUID, state model.State) error {
	res, err := s.db.ExecContext(ctx, `UPDATE schemas SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "update state")
	}
	return requireAffected(res, id)
}

func (s *l4Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schemas SET state = $1, deleted_at = now() WHERE id = $2`, model.StateDeleted, id)
	if err != nil {
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "soft delete")
	}
	return requireAffected(res, id)
}

func (s *l4Store) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT subject FROM schemas ORDER BY subject`)
	if err != nil {
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "list subjects")
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "scan subject")
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *l4Store) LatestVersion(ctx context.Context, subject string) (*model.Schema, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+`
		FROM schemas WHERE subject = $1 AND state != $2
		ORDER BY major DESC, minor DESC, patch DESC LIMIT 1`, subject, model.StateDeleted)
	schema, err := scanSchema(row)
	if err == sql.ErrNoRows {
		return nil, registryerr.Newf(registryerr.NotFound, "no live version for subject %s", subject)
	}
	if err != nil {
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "latest version")
	}
	return schema, nil
}

func (s *l4Store) Statistics(ctx context.Context) (model.Statistics, error) {
	var stats model.Statistics
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT subject),
			COUNT(*) FILTER (WHERE state = 'active'),
			COUNT(*) FILTER (WHERE state = 'deleted'),
			COALESCE(SUM(length(content)), 0)
		FROM schemas
	`)
	if err := row.Scan(&stats.TotalSchemas, &stats.TotalSubjects, &stats.Active, &stats.Deleted, &stats.Bytes); err != nil {
		return stats, registryerr.Wrap(registryerr.StorageUnavailable, err, "statistics")
	}
	return stats, nil
}

func (s *l4Store) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "begin transaction")
	}
	return &l4Tx{tx: tx}, nil
}

func (s *l4Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "l4 health check")
	}
	return nil
}

func (s *l4Store) Close() error { return s.db.Close() }

// l4Tx implements Tx over a single *sql.Tx for the register/update-state
// write path described in the persistence contract.
type l4Tx struct {
	tx *sql.Tx
}

func (t *l4Tx) Register(ctx context.Context, schema *model.Schema) error {
	tags, _ := json.Marshal(schema.Metadata.Tags)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO schemas (id, subject, major, minor, patch, prerelease, build,
			format, content, content_hash, state, owner, tags, description,
			compatibility_mode, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		schema.ID, schema.Subject, schema.Version.Major, schema.Version.Minor, schema.Version.Patch,
		schema.Version.Prerelease, schema.Version.Build, schema.Format, schema.Content, schema.ContentHash,
		schema.State, schema.Metadata.Owner, tags, schema.Metadata.Description,
		schema.Metadata.CompatibilityMode, schema.Metadata.CreatedAt, schema.Metadata.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return registryerr.Wrap(registryerr.AlreadyExists, err, "schema already registered for this subject and version")
		}
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "register schema in tx")
	}
	return nil
}

func (t *l4Tx) UpdateState(ctx context.Context, id uuid.UUID, state model.State) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE schemas SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "update state in tx")
	}
	return requireAffected(res, id)
}

func (t *l4Tx) Commit() error   { return t.tx.Commit() }
func (t *l4Tx) Rollback() error { return t.tx.Rollback() }

func scanSchemaRows(rows *sql.Rows) ([]*model.Schema, error) {
	var schemas []*model.Schema
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, registryerr.Wrap(registryerr.StorageUnavailable, err, "scan schema row")
		}
		schemas = append(schemas, schema)
	}
	return schemas, rows.Err()
}

func requireAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return registryerr.Wrap(registryerr.StorageUnavailable, err, "rows affected")
	}
	if n == 0 {
		return registryerr.Newf(registryerr.NotFound, "schema %s not found", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
