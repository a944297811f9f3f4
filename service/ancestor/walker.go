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

// Package ancestor implements the lazy p1 ancestor walk used to answer
// the `between` wireprotocol command.
package ancestor

import (
	"context"

	"github.com/gammazero/deque"

	"github.com/basinhq/hgdps/model/hg"
)

// ChangesetSource fetches a changeset's parents by node. It is the only
// collaborator the walker needs from the repository.
type ChangesetSource interface {
	Parents(ctx context.Context, node hg.NodeHash) (hg.Parents, error)
}

// Walker produces top, parent(top), parent(parent(top)), ... stopping
// once the current node equals bottom or NullHash. Each call to Next
// issues at most one changeset fetch, for the node it is about to
// return; the node that fetch reveals as "what comes after" is held in a
// single-slot deque until the following call, so the walker never has
// more than one step of lookahead in flight at a time.
type Walker struct {
	src     ChangesetSource
	bottom  hg.NodeHash
	pending *deque.Deque
	done    bool
}

// NewWalker starts a walk from top down to (but not including) bottom.
func NewWalker(src ChangesetSource, top, bottom hg.NodeHash) *Walker {
	w := &Walker{src: src, bottom: bottom, pending: deque.New()}
	w.pending.PushBack(top)
	return w
}

// Next returns the next ancestor in the chain, or ok=false once the walk
// is exhausted.
func (w *Walker) Next(ctx context.Context) (hg.NodeHash, bool, error) {
	if w.done {
		return hg.NodeHash{}, false, nil
	}

	current := w.pending.PopFront().(hg.NodeHash)

	if current == w.bottom || current.IsNull() {
		w.done = true
		return hg.NodeHash{}, false, nil
	}

	parents, err := w.src.Parents(ctx, current)
	if err != nil {
		// Put it back so a retried call observes the same state.
		w.pending.PushFront(current)
		return hg.NodeHash{}, false, err
	}

	next := hg.NullHash
	if p1, ok := parents.P1(); ok {
		next = p1
	}
	w.pending.PushBack(next)

	return current, true, nil
}

// Sample keeps the elements of chain at 0-based indices 1, 2, 4, 8, 16,
// ... — the exponential sampling the `between` wire response applies to
// the raw ancestor chain.
func Sample(chain []hg.NodeHash) []hg.NodeHash {
	var out []hg.NodeHash
	for next := 1; next < len(chain); next *= 2 {
		out = append(out, chain[next])
	}
	return out
}

// Collect drains a Walker fully into a slice. Intended for tests and for
// small `between` ranges; a production caller driving very deep history
// should consume Next directly and apply Sample incrementally.
func Collect(ctx context.Context, w *Walker) ([]hg.NodeHash, error) {
	var out []hg.NodeHash
	for {
		n, ok, err := w.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, n)
	}
}
