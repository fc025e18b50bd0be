package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// Memory is a map-backed artifact store for tests and dry runs.
type Memory struct {
	mu          sync.Mutex
	recordTypes map[string]core.RecordType
	attrTypes   map[string]core.AttributeType
	nextID      int
	posted      []PostedRecord
	batches     int
}

var _ Backend = (*Memory)(nil)

// NewMemory creates a Memory store seeded with the standard catalog.
func NewMemory() *Memory {
	m := &Memory{
		recordTypes: make(map[string]core.RecordType),
		attrTypes:   make(map[string]core.AttributeType),
	}
	for _, rt := range core.StandardRecordTypes {
		m.nextID++
		rt.ID = m.nextID
		m.recordTypes[rt.Name] = rt
	}
	for _, at := range core.StandardAttributeTypes {
		m.nextID++
		at.ID = m.nextID
		m.attrTypes[at.Name] = at
	}
	return m
}

func (m *Memory) ResolveRecordType(_ context.Context, name string) (core.RecordType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.recordTypes[name]
	if !ok {
		return core.RecordType{}, notFound("record", name)
	}
	return rt, nil
}

func (m *Memory) ResolveAttributeType(_ context.Context, name string) (core.AttributeType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attrTypes[name]
	if !ok {
		return core.AttributeType{}, notFound("attribute", name)
	}
	return at, nil
}

func (m *Memory) RegisterRecordType(_ context.Context, name, description string) (core.RecordType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.recordTypes[name]; ok {
		return rt, nil
	}
	m.nextID++
	rt := core.RecordType{ID: m.nextID, Name: name, DisplayName: description}
	m.recordTypes[name] = rt
	return rt, nil
}

// RegisterAttributeType adds an attribute type, returning the existing one if present.
func (m *Memory) RegisterAttributeType(name, description string, kind core.ValueKind) core.AttributeType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at, ok := m.attrTypes[name]; ok {
		return at
	}
	m.nextID++
	at := core.AttributeType{ID: m.nextID, Name: name, DisplayName: description, Kind: kind}
	m.attrTypes[name] = at
	return at
}

func (m *Memory) CreateRecord(_ context.Context, rt core.RecordType, owner core.Owner, attrs []core.Attribute) (core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recordTypes[rt.Name]; !ok {
		return core.Record{}, fmt.Errorf("%w: unknown record type %q", core.ErrCreate, rt.Name)
	}
	return newRecord(rt, owner, attrs), nil
}

func (m *Memory) PostBatch(_ context.Context, records []core.Record, moduleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, r := range records {
		m.posted = append(m.posted, PostedRecord{Record: r, Module: moduleName, PostedAt: now})
	}
	m.batches++
	return nil
}

// Posted returns the records posted so far, in post order.
func (m *Memory) Posted() []PostedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostedRecord(nil), m.posted...)
}

// Batches returns how many times PostBatch was called.
func (m *Memory) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// RecordTypeCount returns the number of registered record types.
func (m *Memory) RecordTypeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recordTypes)
}

func (m *Memory) Close() error { return nil }
