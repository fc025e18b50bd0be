package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS record_types (
		id           SERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attribute_types (
		id           SERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		value_kind   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS records (
		id             UUID PRIMARY KEY,
		record_type_id INTEGER NOT NULL REFERENCES record_types(id),
		owner_id       TEXT NOT NULL,
		owner_name     TEXT NOT NULL,
		owner_kind     TEXT NOT NULL,
		module         TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		posted_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS record_attributes (
		record_id         UUID NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		ordinal           INTEGER NOT NULL,
		attribute_type_id INTEGER NOT NULL REFERENCES attribute_types(id),
		source            TEXT NOT NULL,
		value_text        TEXT,
		value_int         BIGINT,
		value_double      DOUBLE PRECISION,
		value_bytes       BYTEA,
		PRIMARY KEY (record_id, ordinal)
	)`,
}

const registerRecordTypeSQL = `
WITH ins AS (
	INSERT INTO record_types (name, display_name) VALUES ($1, $2)
	ON CONFLICT (name) DO NOTHING
	RETURNING id, name, display_name
)
SELECT id, name, display_name FROM ins
UNION ALL
SELECT id, name, display_name FROM record_types WHERE name = $1
LIMIT 1`

const registerAttributeTypeSQL = `
INSERT INTO attribute_types (name, display_name, value_kind) VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING`

// Postgres stores types and posted records in PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	cache  *typeCache
	logger *slog.Logger
}

var _ Backend = (*Postgres)(nil)

// OpenPostgres connects, creates the schema if missing and seeds the standard catalog.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	cache, err := newTypeCache(cfg.TypeCacheSize)
	if err != nil {
		pool.Close()
		return nil, err
	}

	p := &Postgres{pool: pool, cache: cache, logger: logger}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := p.seed(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) seed(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, rt := range core.StandardRecordTypes {
		batch.Queue(registerRecordTypeSQL, rt.Name, rt.DisplayName)
	}
	for _, at := range core.StandardAttributeTypes {
		batch.Queue(registerAttributeTypeSQL, at.Name, at.DisplayName, at.Kind.String())
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed type catalog: %w", err)
		}
	}
	return nil
}

func (p *Postgres) ResolveRecordType(ctx context.Context, name string) (core.RecordType, error) {
	if rt, ok := p.cache.recordType(name); ok {
		return rt, nil
	}
	var rt core.RecordType
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, display_name FROM record_types WHERE name = $1`, name,
	).Scan(&rt.ID, &rt.Name, &rt.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.RecordType{}, notFound("record", name)
	}
	if err != nil {
		return core.RecordType{}, fmt.Errorf("resolve record type %q: %w", name, err)
	}
	p.cache.addRecordType(rt)
	return rt, nil
}

func (p *Postgres) ResolveAttributeType(ctx context.Context, name string) (core.AttributeType, error) {
	if at, ok := p.cache.attributeType(name); ok {
		return at, nil
	}
	var (
		at   core.AttributeType
		kind string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, display_name, value_kind FROM attribute_types WHERE name = $1`, name,
	).Scan(&at.ID, &at.Name, &at.DisplayName, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.AttributeType{}, notFound("attribute", name)
	}
	if err != nil {
		return core.AttributeType{}, fmt.Errorf("resolve attribute type %q: %w", name, err)
	}
	k, ok := core.ParseValueKind(kind)
	if !ok {
		return core.AttributeType{}, fmt.Errorf("attribute type %q has unknown value kind %q", name, kind)
	}
	at.Kind = k
	p.cache.addAttributeType(at)
	return at, nil
}

func (p *Postgres) RegisterRecordType(ctx context.Context, name, description string) (core.RecordType, error) {
	var rt core.RecordType
	err := p.pool.QueryRow(ctx, registerRecordTypeSQL, name, description).
		Scan(&rt.ID, &rt.Name, &rt.DisplayName)
	if err != nil {
		return core.RecordType{}, fmt.Errorf("register record type %q: %w", name, err)
	}
	p.cache.addRecordType(rt)
	return rt, nil
}

// CreateRecord validates the record type and returns a pending record. Nothing is
// written until PostBatch.
func (p *Postgres) CreateRecord(ctx context.Context, rt core.RecordType, owner core.Owner, attrs []core.Attribute) (core.Record, error) {
	resolved, err := p.ResolveRecordType(ctx, rt.Name)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: %v", core.ErrCreate, err)
	}
	for _, a := range attrs {
		if a.Type.ID == 0 {
			return core.Record{}, fmt.Errorf("%w: attribute type %q has no id", core.ErrCreate, a.Type.Name)
		}
	}
	return newRecord(resolved, owner, attrs), nil
}

// PostBatch writes records and their attributes in one transaction.
func (p *Postgres) PostBatch(ctx context.Context, records []core.Record, moduleName string) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrPost, err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"records"},
		[]string{"id", "record_type_id", "owner_id", "owner_name", "owner_kind", "module", "created_at"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				pgtype.UUID{Bytes: r.ID, Valid: true},
				int32(r.Type.ID),
				r.Owner.ID,
				r.Owner.Name,
				string(r.Owner.Kind),
				moduleName,
				r.CreatedAt,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: copy records: %v", core.ErrPost, err)
	}

	var rows [][]any
	for _, r := range records {
		for i, a := range r.Attributes {
			rows = append(rows, attributeRow(r, i, a))
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"record_attributes"},
		[]string{"record_id", "ordinal", "attribute_type_id", "source", "value_text", "value_int", "value_double", "value_bytes"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("%w: copy attributes: %v", core.ErrPost, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrPost, err)
	}
	p.logger.Debug("batch posted", "records", len(records), "attributes", len(rows), "module", moduleName)
	return nil
}

// attributeRow spreads a TypedValue over the nullable value columns.
func attributeRow(r core.Record, ordinal int, a core.Attribute) []any {
	var (
		text  pgtype.Text
		num   pgtype.Int8
		dbl   pgtype.Float8
		bytes []byte
	)
	v := a.Value
	switch v.Kind {
	case core.KindString, core.KindJSON:
		text = pgtype.Text{String: v.Str, Valid: true}
	case core.KindInteger:
		num = pgtype.Int8{Int64: int64(v.Int), Valid: true}
	case core.KindLong, core.KindDateTime:
		num = pgtype.Int8{Int64: v.Long, Valid: true}
	case core.KindDouble:
		dbl = pgtype.Float8{Float64: v.Double, Valid: true}
	case core.KindByte:
		bytes = v.Bytes
	}
	return []any{
		pgtype.UUID{Bytes: r.ID, Valid: true},
		int32(ordinal),
		int32(a.Type.ID),
		a.Source,
		text,
		num,
		dbl,
		bytes,
	}
}

// PostedCount returns the number of posted records attached to ownerID.
func (p *Postgres) PostedCount(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM records WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
