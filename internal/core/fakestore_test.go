package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-package ArtifactStore seeded with the standard catalog.
type fakeStore struct {
	mu          sync.Mutex
	recordTypes map[string]RecordType
	attrTypes   map[string]AttributeType
	registered  int

	createErr func(RecordType) error
	postErr   error
	posted    [][]Record
	modules   []string
	postCtxOK []bool
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		recordTypes: make(map[string]RecordType),
		attrTypes:   make(map[string]AttributeType),
	}
	for i, rt := range StandardRecordTypes {
		rt.ID = i + 1
		s.recordTypes[rt.Name] = rt
	}
	for i, at := range StandardAttributeTypes {
		at.ID = i + 1
		s.attrTypes[at.Name] = at
	}
	return s
}

func (s *fakeStore) ResolveRecordType(_ context.Context, name string) (RecordType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.recordTypes[name]
	if !ok {
		return RecordType{}, &TypeNotFoundError{Kind: "record", Name: name}
	}
	return rt, nil
}

func (s *fakeStore) ResolveAttributeType(_ context.Context, name string) (AttributeType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.attrTypes[name]
	if !ok {
		return AttributeType{}, &TypeNotFoundError{Kind: "attribute", Name: name}
	}
	return at, nil
}

func (s *fakeStore) RegisterRecordType(_ context.Context, name, description string) (RecordType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.recordTypes[name]; ok {
		return rt, nil
	}
	s.registered++
	rt := RecordType{ID: len(s.recordTypes) + 1, Name: name, DisplayName: description}
	s.recordTypes[name] = rt
	return rt, nil
}

func (s *fakeStore) CreateRecord(_ context.Context, rt RecordType, owner Owner, attrs []Attribute) (Record, error) {
	if s.createErr != nil {
		if err := s.createErr(rt); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrCreate, err)
		}
	}
	return Record{ID: uuid.New(), Type: rt, Owner: owner, Attributes: attrs, CreatedAt: time.Now()}, nil
}

func (s *fakeStore) PostBatch(ctx context.Context, records []Record, moduleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postCtxOK = append(s.postCtxOK, ctx.Err() == nil)
	if s.postErr != nil {
		return fmt.Errorf("%w: %v", ErrPost, s.postErr)
	}
	s.posted = append(s.posted, append([]Record(nil), records...))
	s.modules = append(s.modules, moduleName)
	return nil
}

func (s *fakeStore) postedRecords() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, b := range s.posted {
		out = append(out, b...)
	}
	return out
}
