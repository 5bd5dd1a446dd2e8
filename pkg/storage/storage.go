// Package storage persists MARC-21 records in a pebble database keyed
// by ksuid record identifiers.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/marcstream/pkg/codec"
	"github.com/ssargent/marcstream/pkg/marc"
)

// recordPrefix namespaces record keys so the database can host the
// extraction index alongside them.
const recordPrefix = "rec/"

// RecordStore stores serialized MARC-21 records in pebble.
type RecordStore struct {
	db    *pebble.DB
	codec *codec.RecordCodec
}

// NewRecordStore opens (or creates) a record store at path.
func NewRecordStore(path string) (*RecordStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return &RecordStore{db: db, codec: codec.NewRecordCodec()}, nil
}

// DB exposes the underlying pebble database for sibling keyspaces such
// as the extraction index.
func (s *RecordStore) DB() *pebble.DB {
	return s.db
}

// Create serializes a record and stores it under a fresh id.
func (s *RecordStore) Create(record *marc.Record) (*ksuid.KSUID, error) {
	data, err := record.MARC()
	if err != nil {
		return nil, err
	}
	id := ksuid.New()
	if err := s.db.Set(recordKey(id), data, pebble.NoSync); err != nil {
		return nil, err
	}
	return &id, nil
}

// Read fetches and decodes the record stored under id.
func (s *RecordStore) Read(id ksuid.KSUID) (*marc.Record, error) {
	data, closer, err := s.db.Get(recordKey(id))
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return s.codec.Decode(data)
}

// ReadRaw fetches the stored MARC-21 bytes without decoding them.
func (s *RecordStore) ReadRaw(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(recordKey(id))
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Delete removes the record stored under id.
func (s *RecordStore) Delete(id ksuid.KSUID) error {
	return s.db.Delete(recordKey(id), pebble.NoSync)
}

// List returns the ids of every stored record.
func (s *RecordStore) List() ([]ksuid.KSUID, error) {
	iter, err := s.db.NewIter(prefixBounds(recordPrefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(recordPrefix):])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, iter.Error()
}

// Stats reports the number of stored records and their total size in
// bytes.
func (s *RecordStore) Stats() (count int, size int64, err error) {
	iter, err := s.db.NewIter(prefixBounds(recordPrefix))
	if err != nil {
		return 0, 0, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		count++
		value, err := iter.ValueAndErr()
		if err != nil {
			return 0, 0, err
		}
		size += int64(len(value))
	}
	return count, size, iter.Error()
}

// Close closes the underlying database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func recordKey(id ksuid.KSUID) []byte {
	return append([]byte(recordPrefix), id.Bytes()...)
}

// prefixBounds bounds an iterator to keys sharing prefix. The upper
// bound increments the prefix's last byte, which never overflows for
// the '/'-terminated prefixes used here.
func prefixBounds(prefix string) *pebble.IterOptions {
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	}
}
