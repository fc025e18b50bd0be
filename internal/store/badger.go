package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// Key layout:
//
//	rt:<name>        JSON core.RecordType
//	at:<name>        JSON core.AttributeType
//	rec:<uuid>       JSON PostedRecord
//	seq:types        type id sequence
const (
	recordTypePrefix    = "rt:"
	attributeTypePrefix = "at:"
	recordPrefix        = "rec:"
	typeIDSeq           = "seq:types"

	defaultSequenceBandwidth = 100
)

func recordTypeKey(name string) []byte    { return []byte(recordTypePrefix + name) }
func attributeTypeKey(name string) []byte { return []byte(attributeTypePrefix + name) }
func recordKey(r core.Record) []byte      { return []byte(recordPrefix + r.ID.String()) }

// Badger stores types and posted records in an embedded BadgerDB.
type Badger struct {
	db     *badger.DB
	seq    *badger.Sequence
	cache  *typeCache
	logger *slog.Logger
}

var _ Backend = (*Badger)(nil)

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens (creating if needed) the database in cfg.BadgerDir, or an in-memory
// database when cfg.BadgerInMemory is set, and seeds the standard catalog.
func OpenBadger(ctx context.Context, cfg Config, logger *slog.Logger) (*Badger, error) {
	var opts badger.Options
	if cfg.BadgerInMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.BadgerDir == "" {
			return nil, errors.New("badger directory is required")
		}
		if err := os.MkdirAll(cfg.BadgerDir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.BadgerDir)
	}
	opts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(typeIDSeq), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("type id sequence: %w", err)
	}

	cache, err := newTypeCache(cfg.TypeCacheSize)
	if err != nil {
		seq.Release()
		db.Close()
		return nil, err
	}

	b := &Badger{db: db, seq: seq, cache: cache, logger: logger}
	if err := b.seed(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Badger) nextID() (int, error) {
	n, err := b.seq.Next()
	if err != nil {
		return 0, err
	}
	return int(n) + 1, nil
}

func (b *Badger) seed(ctx context.Context) error {
	for _, rt := range core.StandardRecordTypes {
		if _, err := b.RegisterRecordType(ctx, rt.Name, rt.DisplayName); err != nil {
			return fmt.Errorf("seed type catalog: %w", err)
		}
	}
	for _, at := range core.StandardAttributeTypes {
		if _, err := b.registerAttributeType(at); err != nil {
			return fmt.Errorf("seed type catalog: %w", err)
		}
	}
	return nil
}

// getJSON reads key into v. found is false when the key does not exist.
func getJSON(tx *badger.Txn, key []byte, v any) (found bool, err error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(tx *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Set(key, data)
}

func (b *Badger) ResolveRecordType(_ context.Context, name string) (core.RecordType, error) {
	if rt, ok := b.cache.recordType(name); ok {
		return rt, nil
	}
	var rt core.RecordType
	var found bool
	err := b.db.View(func(tx *badger.Txn) error {
		var err error
		found, err = getJSON(tx, recordTypeKey(name), &rt)
		return err
	})
	if err != nil {
		return core.RecordType{}, fmt.Errorf("resolve record type %q: %w", name, err)
	}
	if !found {
		return core.RecordType{}, notFound("record", name)
	}
	b.cache.addRecordType(rt)
	return rt, nil
}

func (b *Badger) ResolveAttributeType(_ context.Context, name string) (core.AttributeType, error) {
	if at, ok := b.cache.attributeType(name); ok {
		return at, nil
	}
	var at core.AttributeType
	var found bool
	err := b.db.View(func(tx *badger.Txn) error {
		var err error
		found, err = getJSON(tx, attributeTypeKey(name), &at)
		return err
	})
	if err != nil {
		return core.AttributeType{}, fmt.Errorf("resolve attribute type %q: %w", name, err)
	}
	if !found {
		return core.AttributeType{}, notFound("attribute", name)
	}
	b.cache.addAttributeType(at)
	return at, nil
}

func (b *Badger) RegisterRecordType(_ context.Context, name, description string) (core.RecordType, error) {
	var rt core.RecordType
	err := b.db.Update(func(tx *badger.Txn) error {
		found, err := getJSON(tx, recordTypeKey(name), &rt)
		if err != nil || found {
			return err
		}
		id, err := b.nextID()
		if err != nil {
			return err
		}
		rt = core.RecordType{ID: id, Name: name, DisplayName: description}
		return setJSON(tx, recordTypeKey(name), rt)
	})
	if err != nil {
		return core.RecordType{}, fmt.Errorf("register record type %q: %w", name, err)
	}
	b.cache.addRecordType(rt)
	return rt, nil
}

func (b *Badger) registerAttributeType(def core.AttributeType) (core.AttributeType, error) {
	var at core.AttributeType
	err := b.db.Update(func(tx *badger.Txn) error {
		found, err := getJSON(tx, attributeTypeKey(def.Name), &at)
		if err != nil || found {
			return err
		}
		id, err := b.nextID()
		if err != nil {
			return err
		}
		at = def
		at.ID = id
		return setJSON(tx, attributeTypeKey(def.Name), at)
	})
	return at, err
}

func (b *Badger) CreateRecord(ctx context.Context, rt core.RecordType, owner core.Owner, attrs []core.Attribute) (core.Record, error) {
	resolved, err := b.ResolveRecordType(ctx, rt.Name)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: %v", core.ErrCreate, err)
	}
	return newRecord(resolved, owner, attrs), nil
}

// PostBatch writes every record under its own key with a WriteBatch.
func (b *Badger) PostBatch(_ context.Context, records []core.Record, moduleName string) error {
	if len(records) == 0 {
		return nil
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	now := time.Now().UTC()
	for _, r := range records {
		data, err := json.Marshal(PostedRecord{Record: r, Module: moduleName, PostedAt: now})
		if err != nil {
			return fmt.Errorf("%w: encode record %s: %v", core.ErrPost, r.ID, err)
		}
		if err := wb.Set(recordKey(r), data); err != nil {
			return fmt.Errorf("%w: %v", core.ErrPost, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", core.ErrPost, err)
	}
	b.logger.Debug("batch posted", "records", len(records), "module", moduleName)
	return nil
}

// Posted returns every posted record, ordered by key.
func (b *Badger) Posted() ([]PostedRecord, error) {
	var out []PostedRecord
	err := b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec PostedRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		b.logger.Warn("failed to release sequence", "error", err)
	}
	return b.db.Close()
}
