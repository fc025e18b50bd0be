// Package store provides the artifact store backends an ingestion pass posts to.
//
// Every backend seeds the standard type catalog on open, so a mapping document can
// resolve the usual record and attribute types against an empty database.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Backend is an artifact store that holds resources until closed.
type Backend interface {
	core.ArtifactStore
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	DatabaseURL     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	BadgerDir      string
	BadgerInMemory bool

	TypeCacheSize int
}

// Open creates the configured backend and seeds the standard catalog.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case BackendBadger:
		return OpenBadger(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// PostedRecord is a record as persisted by PostBatch.
type PostedRecord struct {
	core.Record
	Module   string    `json:"module"`
	PostedAt time.Time `json:"postedAt"`
}

// newRecord builds the pending record returned by CreateRecord.
func newRecord(rt core.RecordType, owner core.Owner, attrs []core.Attribute) core.Record {
	return core.Record{
		ID:         uuid.New(),
		Type:       rt,
		Owner:      owner,
		Attributes: append([]core.Attribute(nil), attrs...),
		CreatedAt:  time.Now().UTC(),
	}
}

func notFound(kind, name string) error {
	return &core.TypeNotFoundError{Kind: kind, Name: name}
}
