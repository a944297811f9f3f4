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

// Package upload bridges resolved Filelog entries to a blob store,
// enforcing at-most-one upload per (node, path) within a batch.
package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/basinhq/hgdps/model/hg"
)

// Key identifies one upload: a node in a path.
type Key struct {
	Node hg.NodeHash
	Path hg.RepoPath
}

// BlobEntry is the completion record a successful upload produces.
type BlobEntry struct {
	Node hg.NodeHash
	Path hg.RepoPath
	Size int
}

// Repo is the narrow contract a Filelog needs from the blob repository to
// schedule its own upload.
type Repo interface {
	UploadEntry(ctx context.Context, blob []byte, p1, p2 *hg.NodeHash, path hg.RepoPath) (hg.NodeHash, error)
}

type result struct {
	ready chan struct{}
	entry BlobEntry
	err   error
}

// Batch deduplicates concurrent uploads of the same key within one
// changegroup, using a future shared across callers that request the
// same key — the second caller for a key observes the first's
// in-flight (or completed) result rather than scheduling a duplicate
// write.
type Batch struct {
	mu      sync.Mutex
	inflight map[Key]*result
	repo    Repo
}

// NewBatch creates an uploader for one batch of Filelog entries.
func NewBatch(repo Repo) *Batch {
	return &Batch{
		inflight: make(map[Key]*result),
		repo:     repo,
	}
}

// Upload schedules the upload of fl, synchronously validating and
// returning the key, and asynchronously performing the write. Calling
// Upload again for the same key before it completes (or after) returns
// the same shared result instead of scheduling a second write.
func (b *Batch) Upload(ctx context.Context, fl hg.Filelog) (Key, func(context.Context) (BlobEntry, error), error) {
	if fl.Path.Kind() != hg.RepoPathFile {
		return Key{}, nil, fmt.Errorf("%w: filelog path must be a file", hg.ErrInvalidPath)
	}

	key := Key{Node: fl.Node, Path: fl.Path}

	b.mu.Lock()
	if r, ok := b.inflight[key]; ok {
		b.mu.Unlock()
		return key, waiter(r), nil
	}

	r := &result{ready: make(chan struct{})}
	b.inflight[key] = r
	b.mu.Unlock()

	go b.perform(ctx, fl, r)

	return key, waiter(r), nil
}

func waiter(r *result) func(context.Context) (BlobEntry, error) {
	return func(ctx context.Context) (BlobEntry, error) {
		select {
		case <-r.ready:
			return r.entry, r.err
		case <-ctx.Done():
			return BlobEntry{}, ctx.Err()
		}
	}
}

func (b *Batch) perform(ctx context.Context, fl hg.Filelog, r *result) {
	defer close(r.ready)

	node, err := b.repo.UploadEntry(ctx, fl.Blob, fl.P1, fl.P2, fl.Path)
	if err != nil {
		r.err = fmt.Errorf("could not upload blob entry: %w", err)
		return
	}

	r.entry = BlobEntry{Node: node, Path: fl.Path, Size: len(fl.Blob)}
}

// Keys returns every key currently tracked by this batch, for callers
// that want to wait on all of them.
func (b *Batch) Keys() []Key {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]Key, 0, len(b.inflight))
	for k := range b.inflight {
		keys = append(keys, k)
	}
	return keys
}

// WaitAll blocks until every tracked upload completes, aggregating all
// failures (rather than stopping at the first) with go-multierror so a
// caller can see the full extent of a failed batch.
func (b *Batch) WaitAll(ctx context.Context) error {
	var merr *multierror.Error

	for _, key := range b.Keys() {
		b.mu.Lock()
		r := b.inflight[key]
		b.mu.Unlock()

		select {
		case <-r.ready:
			if r.err != nil {
				merr = multierror.Append(merr, fmt.Errorf("upload %s/%s: %w", key.Node, key.Path, r.err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return merr.ErrorOrNil()
}
