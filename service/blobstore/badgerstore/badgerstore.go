// Copyright 2024 Basin Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package badgerstore implements a blobstore.Store on top of an embedded
// Badger LSM tree, for single-host deployments that want local durability
// without a filesystem tree of loose files.
package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"
	"github.com/klauspost/compress/zstd"

	"github.com/basinhq/hgdps/model/hg"
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Errorf("could not initialize blob compressor: %w", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Errorf("could not initialize blob decompressor: %w", err))
	}
}

// DefaultOptions returns the Badger options this store opens with: tuned
// for a write-heavy, single-writer import workload rather than Badger's
// defaults, which favor read-heavy multi-writer OLTP use.
func DefaultOptions(dir string) badger.Options {
	return badger.DefaultOptions(dir).
		WithTableLoadingMode(options.FileIO).
		WithValueLogLoadingMode(options.FileIO).
		WithNumMemtables(1).
		WithKeepL0InMemory(false).
		WithCompactL0OnClose(false).
		WithNumLevelZeroTables(1).
		WithNumLevelZeroTablesStall(2).
		WithLoadBloomsOnOpen(false).
		WithLogger(nil)
}

// Store wraps a Badger database, compressing values with zstd before they
// hit the value log.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir using
// DefaultOptions.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("could not open badger database at %q: %w", dir, hg.ErrStorageIO)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunValueLogGC reclaims value log space below discardRatio. The
// importer calls this once at the end of a run unless told to postpone
// it, mirroring the reference's --postpone-compaction flag for its
// embedded-LSM backend.
func (s *Store) RunValueLogGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Get looks up key and decompresses its value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not read blob %q: %w", key, hg.ErrStorageIO)
	}

	value, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not decompress blob %q: %w", key, hg.ErrStorageIO)
	}
	return value, true, nil
}

// Put compresses value and stores it under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	compressed := encoder.EncodeAll(value, nil)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), compressed)
	})
	if err != nil {
		return fmt.Errorf("could not write blob %q: %w", key, hg.ErrStorageIO)
	}
	return nil
}
