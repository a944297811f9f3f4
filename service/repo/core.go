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

// Package repo implements the Repository contract the wireprotocol
// dispatcher and the filelog resolver consume: changeset and bookmark
// metadata persisted in Badger, file content served through a blobstore
// with a ristretto front cache.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/ristretto"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/blobstore"
)

// Repo is the badger+blobstore backed Repository implementation.
type Repo struct {
	db      *badger.DB
	blobs   blobstore.Store
	content *ristretto.Cache
}

// Open opens (creating if absent) the metadata database at dir, serving
// file content out of blobs.
func Open(dir string, blobs blobstore.Store) (*Repo, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("could not open repository database at %q: %w", dir, hg.ErrStorageIO)
	}

	content, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     1 << 28,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize content cache: %w", err)
	}

	return &Repo{db: db, blobs: blobs, content: content}, nil
}

// Close releases the database handle and flushes the content cache.
func (r *Repo) Close() error {
	r.content.Close()
	return r.db.Close()
}

// GetFileContent returns the full text of the file revision identified by
// node, serving a ristretto hit before falling through to the blobstore.
// This cache is keyed by node for the repo's whole lifetime, distinct
// from the per-stream delta cache that memoizes within one changegroup.
func (r *Repo) GetFileContent(ctx context.Context, node hg.NodeHash) ([]byte, error) {
	key := node.String()

	if cached, ok := r.content.Get(key); ok {
		return cached.([]byte), nil
	}

	value, ok, err := r.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not fetch file content %s: %w", node, err)
	}
	if !ok {
		return nil, fmt.Errorf("file content %s: %w", node, hg.ErrNotFound)
	}

	r.content.Set(key, value, int64(len(value)))
	return value, nil
}

// PutFileContent stores the full text of a file revision, for use by the
// importer. It invalidates any cached copy so a re-import observes the
// new value immediately.
func (r *Repo) PutFileContent(ctx context.Context, node hg.NodeHash, value []byte) error {
	key := node.String()
	if err := r.blobs.Put(ctx, key, value); err != nil {
		return fmt.Errorf("could not store file content %s: %w", node, err)
	}
	r.content.Del(key)
	return nil
}

// GetHeads streams the set of current head changesets. The error channel
// carries at most one error and is always closed; the node channel is
// closed once streaming completes (successfully or not).
func (r *Repo) GetHeads(ctx context.Context) (<-chan hg.NodeHash, <-chan error) {
	nodes := make(chan hg.NodeHash)
	errs := make(chan error, 1)

	go func() {
		defer close(nodes)
		defer close(errs)

		err := r.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte{prefixHead}
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				var node hg.NodeHash
				copy(node[:], it.Item().Key()[1:])

				select {
				case nodes <- node:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			errs <- fmt.Errorf("could not enumerate heads: %w", err)
		}
	}()

	return nodes, errs
}

// SetHeads replaces the head set with nodes, for use by the importer
// after it finishes writing a batch of changesets.
func (r *Repo) SetHeads(ctx context.Context, nodes []hg.NodeHash) error {
	return r.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixHead}
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			stale = append(stale, append([]byte(nil), it.Item().Key()...))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, node := range nodes {
			if err := txn.Set(headKey(node), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetChangesetByNodeID fetches and decodes the changeset record for node.
func (r *Repo) GetChangesetByNodeID(ctx context.Context, node hg.NodeHash) (hg.Changeset, error) {
	var cs hg.Changeset
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(changesetKey(node))
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			return codec.Unmarshal(raw, &cs)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return hg.Changeset{}, fmt.Errorf("changeset %s: %w", node, hg.ErrNotFound)
	}
	if err != nil {
		return hg.Changeset{}, fmt.Errorf("could not read changeset %s: %w", node, hg.ErrStorageIO)
	}
	return cs, nil
}

// ChangesetExists reports whether node has a stored changeset record.
func (r *Repo) ChangesetExists(ctx context.Context, node hg.NodeHash) (bool, error) {
	_, err := r.GetChangesetByNodeID(ctx, node)
	if errors.Is(err, hg.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PutChangeset stores a changeset record, for use by the importer.
func (r *Repo) PutChangeset(ctx context.Context, cs hg.Changeset) error {
	raw, err := codec.Marshal(cs)
	if err != nil {
		return fmt.Errorf("could not encode changeset %s: %w", cs.Node, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(changesetKey(cs.Node), raw)
	})
	if err != nil {
		return fmt.Errorf("could not store changeset %s: %w", cs.Node, hg.ErrStorageIO)
	}
	return nil
}
