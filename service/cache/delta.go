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

// Package cache implements the per-stream delta cache: it memoizes
// fully-reconstructed file bytes by content node, so that a chain of
// deltas referencing earlier entries in the same changegroup stream does
// not require re-reading the repository.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/basinhq/hgdps/model/hg"
)

// BaseFetcher is the narrow repository contract the cache needs: fetch a
// file revision's bytes when its base is not already in this stream.
type BaseFetcher interface {
	GetFileContent(ctx context.Context, node hg.NodeHash) ([]byte, error)
}

// entry is the shared, memoized result for one node: every caller that
// observes it waits on ready and then reads bytes/err without
// recomputation.
type entry struct {
	ready chan struct{}
	bytes []byte
	err   error
}

// DeltaCache memoizes node -> reconstructed bytes for exactly one
// changegroup stream. It must not be reused across streams: its entire
// purpose is to let deltas that reference earlier records in the same
// stream avoid a repository round trip, and its lifetime is the stream's.
type DeltaCache struct {
	mu      sync.Mutex
	entries map[hg.NodeHash]*entry
	repo    BaseFetcher
	stats   Stats
}

// New creates a delta cache scoped to one stream.
func New(repo BaseFetcher, stats Stats) *DeltaCache {
	if stats == nil {
		stats = NopStats{}
	}
	return &DeltaCache{
		entries: make(map[hg.NodeHash]*entry),
		repo:    repo,
		stats:   stats,
	}
}

// Decode applies delta against base (or against an empty buffer, if base
// is nil) and returns the shared bytes for node. If node is already
// present, the existing computation is returned and no new work is
// scheduled; otherwise a new computation is inserted and run in the
// background. Waiting for the result is done by calling Wait on the
// returned handle.
func (c *DeltaCache) Decode(ctx context.Context, node hg.NodeHash, base *hg.NodeHash, delta hg.Delta) *Future {
	c.mu.Lock()
	if e, ok := c.entries[node]; ok {
		c.mu.Unlock()
		return &Future{e: e}
	}

	e := &entry{ready: make(chan struct{})}
	if _, exists := c.entries[node]; exists {
		// Unreachable under the lock above; kept as an explicit
		// invariant check because a duplicate insertion here would
		// silently corrupt a concurrent reader's result.
		panic(fmt.Errorf("%w: duplicate delta cache insertion for node %s", hg.ErrInternal, node))
	}
	c.entries[node] = e
	c.mu.Unlock()

	c.stats.ObserveDeltaSize(deltaHeapSize(delta))

	go c.compute(ctx, node, base, delta, e)

	return &Future{e: e}
}

func (c *DeltaCache) compute(ctx context.Context, node hg.NodeHash, base *hg.NodeHash, delta hg.Delta, e *entry) {
	defer close(e.ready)

	var baseBytes []byte
	if base != nil {
		b, err := c.baseBytes(ctx, *base)
		if err != nil {
			e.err = fmt.Errorf("while looking for base %s to apply on delta %s: %w", *base, node, err)
			return
		}
		baseBytes = b
	}

	out, err := hg.Apply(baseBytes, delta)
	if err != nil {
		e.err = err
		return
	}

	c.stats.ObserveBlobSize(len(out))
	e.bytes = out
}

// baseBytes resolves base either from an in-stream entry or, failing
// that, from the repository.
func (c *DeltaCache) baseBytes(ctx context.Context, base hg.NodeHash) ([]byte, error) {
	c.mu.Lock()
	e, ok := c.entries[base]
	c.mu.Unlock()
	if ok {
		<-e.ready
		if e.err != nil {
			return nil, e.err
		}
		return e.bytes, nil
	}

	b, err := c.repo.GetFileContent(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hg.ErrMissingBase, err)
	}
	return b, nil
}

func deltaHeapSize(d hg.Delta) int {
	n := 0
	for _, frag := range d.Fragments {
		n += len(frag.Content)
	}
	return n
}

// Future is a handle onto one node's shared, memoized computation.
type Future struct {
	e *entry
}

// Wait blocks until the computation completes (or ctx is done) and
// returns its bytes.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.e.ready:
		return f.e.bytes, f.e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
