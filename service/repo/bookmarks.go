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

package repo

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/bundle2"
)

// Bookmarks is the BookmarkStore view over the repository's badger
// database. It satisfies bundle2.KeyValueLookup directly, so a Bookmarks
// value can be handed straight to bundle2.ListkeysPart.
type Bookmarks struct {
	db *badger.DB
}

// Bookmarks returns a view over the bookmark namespace, satisfying
// bundle2.KeyValueLookup.
func (r *Repo) Bookmarks(ctx context.Context) (bundle2.KeyValueLookup, error) {
	return Bookmarks{db: r.db}, nil
}

// Names enumerates all bookmark names.
func (b Bookmarks) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixBookmark}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			names = append(names, string(it.Item().Key()[1:]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not enumerate bookmarks: %w", hg.ErrStorageIO)
	}
	return names, nil
}

// Lookup resolves name to its target node hash, hex-encoded. ok is false
// if the bookmark was deleted between Names and this call, never an
// error: the race is expected under concurrent mutation.
func (b Bookmarks) Lookup(ctx context.Context, name string) (string, bool, error) {
	var value string
	found := true
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bookmarkKey(name))
		if err == badger.ErrKeyNotFound {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			value = string(raw)
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("could not look up bookmark %q: %w", name, hg.ErrStorageIO)
	}
	return value, found, nil
}

// SetBookmark points name at node, for use by the importer.
func (r *Repo) SetBookmark(ctx context.Context, name string, node hg.NodeHash) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bookmarkKey(name), []byte(node.String()))
	})
	if err != nil {
		return fmt.Errorf("could not set bookmark %q: %w", name, hg.ErrStorageIO)
	}
	return nil
}
