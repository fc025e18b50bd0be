package core

import "context"

// TypeRegistry resolves and registers record and attribute types.
// Resolve methods return an error wrapping ErrNotFound for unknown names.
// RegisterRecordType is idempotent: registering an existing name returns the
// existing type unchanged.
type TypeRegistry interface {
	ResolveRecordType(ctx context.Context, name string) (RecordType, error)
	ResolveAttributeType(ctx context.Context, name string) (AttributeType, error)
	RegisterRecordType(ctx context.Context, name, description string) (RecordType, error)
}

// ArtifactStore is the destination of an ingestion pass.
// CreateRecord errors wrap ErrCreate; PostBatch errors wrap ErrPost.
type ArtifactStore interface {
	TypeRegistry
	CreateRecord(ctx context.Context, recordType RecordType, owner Owner, attrs []Attribute) (Record, error)
	PostBatch(ctx context.Context, records []Record, moduleName string) error
}
