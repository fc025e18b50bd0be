package store

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// DefaultTypeCacheSize bounds each of the record and attribute type caches.
const DefaultTypeCacheSize = 512

// typeCache keeps resolved types in front of a persistent registry.
// Types never change once registered, so entries are only evicted for size.
type typeCache struct {
	records *lru.Cache[string, core.RecordType]
	attrs   *lru.Cache[string, core.AttributeType]
}

func newTypeCache(size int) (*typeCache, error) {
	if size <= 0 {
		size = DefaultTypeCacheSize
	}
	records, err := lru.New[string, core.RecordType](size)
	if err != nil {
		return nil, err
	}
	attrs, err := lru.New[string, core.AttributeType](size)
	if err != nil {
		return nil, err
	}
	return &typeCache{records: records, attrs: attrs}, nil
}

func (c *typeCache) recordType(name string) (core.RecordType, bool) {
	return c.records.Get(name)
}

func (c *typeCache) addRecordType(rt core.RecordType) {
	c.records.Add(rt.Name, rt)
}

func (c *typeCache) attributeType(name string) (core.AttributeType, bool) {
	return c.attrs.Get(name)
}

func (c *typeCache) addAttributeType(at core.AttributeType) {
	c.attrs.Add(at.Name, at)
}
