// Package index maintains secondary indexes over extracted MARC field
// values, enabling exact and range lookups of stored records.
package index

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/marcstream/pkg/extract"
	"github.com/ssargent/marcstream/pkg/marc"
)

// indexPrefix namespaces index keys within the shared pebble database.
const indexPrefix = "idx/"

// Field is a named extraction whose values are indexed.
type Field struct {
	Name string
	Plan *extract.Extractor
}

// Manager indexes extracted field values in a pebble keyspace. Each
// entry's key is:
//
//	idx/<field>\x00<value>\x00<record id (20 bytes)>
//
// The record id suffix keeps keys unique per record; pebble's ordered
// keys give exact lookups by prefix and range lookups for free.
type Manager struct {
	db     *pebble.DB
	fields []Field
	mutex  sync.RWMutex
}

// NewManager creates an index manager over the given pebble database.
func NewManager(db *pebble.DB, fields []Field) *Manager {
	return &Manager{db: db, fields: fields}
}

// Fields returns the names of the indexed extractions.
func (m *Manager) Fields() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		names = append(names, f.Name)
	}
	return names
}

// IndexRecord runs every configured extraction against the record and
// inserts its values.
func (m *Manager) IndexRecord(id ksuid.KSUID, record *marc.Record) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	batch := m.db.NewBatch()
	defer batch.Close()

	for _, field := range m.fields {
		for _, value := range field.Plan.Extract(record) {
			if err := batch.Set(indexKey(field.Name, value, id), nil, nil); err != nil {
				return err
			}
		}
	}
	return batch.Commit(pebble.NoSync)
}

// DeleteRecord removes the record's values from every index.
func (m *Manager) DeleteRecord(id ksuid.KSUID, record *marc.Record) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	batch := m.db.NewBatch()
	defer batch.Close()

	for _, field := range m.fields {
		for _, value := range field.Plan.Extract(record) {
			if err := batch.Delete(indexKey(field.Name, value, id), nil); err != nil {
				return err
			}
		}
	}
	return batch.Commit(pebble.NoSync)
}

// Search finds the records whose indexed field equals value exactly.
func (m *Manager) Search(field, value string) ([]ksuid.KSUID, error) {
	prefix := fieldPrefix(field)
	prefix = append(prefix, value...)
	prefix = append(prefix, 0x00)

	upper := append(prefix[:len(prefix):len(prefix)], 0xFF)
	return m.scan(prefix, upper)
}

// SearchRange finds the records whose indexed field value lies in
// [lo, hi] inclusive.
func (m *Manager) SearchRange(field, lo, hi string) ([]ksuid.KSUID, error) {
	lower := append(fieldPrefix(field), lo...)
	// Every key for value hi is <prefix><hi>\x00<id>, so <prefix><hi>\x01
	// bounds them from above without admitting longer values that merely
	// start with hi.
	upper := append(fieldPrefix(field), hi...)
	upper = append(upper, 0x01)
	return m.scan(lower, upper)
}

// scan collects the record ids of every index entry in [lower, upper).
func (m *Manager) scan(lower, upper []byte) ([]ksuid.KSUID, error) {
	iter, err := m.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	seen := make(map[ksuid.KSUID]bool)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) < ksuidLen {
			continue
		}
		id, err := ksuid.FromBytes(key[len(key)-ksuidLen:])
		if err != nil {
			return nil, fmt.Errorf("malformed index key %q: %w", key, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, iter.Error()
}

const ksuidLen = 20

func fieldPrefix(field string) []byte {
	var buf bytes.Buffer
	buf.WriteString(indexPrefix)
	buf.WriteString(field)
	buf.WriteByte(0x00)
	return buf.Bytes()
}

func indexKey(field, value string, id ksuid.KSUID) []byte {
	key := fieldPrefix(field)
	key = append(key, value...)
	key = append(key, 0x00)
	key = append(key, id.Bytes()...)
	return key
}
