// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

// Package validation compares each imported L1 block's derived outcome
// against the authoritative reference feed and keeps a durable,
// idempotently-upserted result log keyed by L1 block.
package validation

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Result is one persisted validation outcome. L1Block is the primary key;
// re-validating the same block overwrites everything but CreatedAt.
type Result struct {
	L1Block         uint64          `json:"l1_block"`
	Success         bool            `json:"success"`
	ErrorDetails    []string        `json:"error_details"`
	ValidationStats json.RawMessage `json:"validation_stats"`
	ValidatedAt     time.Time       `json:"validated_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var (
	resultPrefix  = []byte("res-")
	failurePrefix = []byte("fail-")
)

func resultKey(l1Block uint64) []byte {
	key := make([]byte, len(resultPrefix)+8)
	copy(key, resultPrefix)
	binary.BigEndian.PutUint64(key[len(resultPrefix):], l1Block)
	return key
}

func failureKey(l1Block uint64) []byte {
	key := make([]byte, len(failurePrefix)+8)
	copy(key, failurePrefix)
	binary.BigEndian.PutUint64(key[len(failurePrefix):], l1Block)
	return key
}

// Store is the validation result log. Keys are big-endian block numbers so
// iteration order is block order; failed blocks get a secondary index entry
// so the importer's halt check is a prefix scan over failures only.
type Store struct {
	db *leveldb.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the result. The existing row's CreatedAt survives, matching
// find_or_initialize semantics; everything else is replaced.
func (s *Store) Save(result *Result) error {
	now := time.Now().UTC()
	if existing, ok, err := s.Result(result.L1Block); err != nil {
		return err
	} else if ok {
		result.CreatedAt = existing.CreatedAt
	} else {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	encoded, err := json.Marshal(result)
	if err != nil {
		return errors.WithStack(err)
	}
	batch := new(leveldb.Batch)
	batch.Put(resultKey(result.L1Block), encoded)
	if result.Success {
		batch.Delete(failureKey(result.L1Block))
	} else {
		batch.Put(failureKey(result.L1Block), []byte{1})
	}
	return errors.WithStack(s.db.Write(batch, nil))
}

func (s *Store) Result(l1Block uint64) (*Result, bool, error) {
	raw, err := s.db.Get(resultKey(l1Block), nil)
	if errors.Is(err, ldberrors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, errors.WithStack(err)
	}
	return &result, true, nil
}

// HasFailureAtOrBefore reports the lowest failed block not above l1Block.
func (s *Store) HasFailureAtOrBefore(l1Block uint64) (bool, uint64, error) {
	iter := s.db.NewIterator(util.BytesPrefix(failurePrefix), nil)
	defer iter.Release()
	for iter.Next() {
		n := binary.BigEndian.Uint64(iter.Key()[len(failurePrefix):])
		if n <= l1Block {
			return true, n, nil
		}
	}
	return false, 0, errors.WithStack(iter.Error())
}

// LastValidated returns the highest block with any result.
func (s *Store) LastValidated() (uint64, bool, error) {
	iter := s.db.NewIterator(util.BytesPrefix(resultPrefix), nil)
	defer iter.Release()
	if !iter.Last() {
		return 0, false, errors.WithStack(iter.Error())
	}
	return binary.BigEndian.Uint64(iter.Key()[len(resultPrefix):]), true, nil
}

// MissingInRange lists blocks in [from, to] that have no result row.
func (s *Store) MissingInRange(from, to uint64) ([]uint64, error) {
	if to < from {
		return nil, nil
	}
	present := make(map[uint64]struct{})
	iter := s.db.NewIterator(&util.Range{Start: resultKey(from), Limit: resultKey(to + 1)}, nil)
	defer iter.Release()
	for iter.Next() {
		present[binary.BigEndian.Uint64(iter.Key()[len(resultPrefix):])] = struct{}{}
	}
	if err := iter.Error(); err != nil {
		return nil, errors.WithStack(err)
	}
	var missing []uint64
	for n := from; n <= to; n++ {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}
