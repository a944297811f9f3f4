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

package ancestor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinhq/hgdps/model/hg"
)

// linearHistory builds a chain of n changesets, chain[0] being the tip and
// chain[n-1] the root, each one's p1 pointing at its predecessor.
func linearHistory(n int) []hg.NodeHash {
	chain := make([]hg.NodeHash, n)
	for i := range chain {
		var h hg.NodeHash
		h[0] = byte(i + 1)
		h[1] = byte((i + 1) >> 8)
		chain[i] = h
	}
	return chain
}

type linearSource struct {
	chain []hg.NodeHash
}

func (s linearSource) Parents(_ context.Context, node hg.NodeHash) (hg.Parents, error) {
	for i, n := range s.chain {
		if n == node {
			if i+1 < len(s.chain) {
				return hg.ParentsFromWire(s.chain[i+1], hg.NullHash), nil
			}
			return hg.ParentsFromWire(hg.NullHash, hg.NullHash), nil
		}
	}
	return hg.Parents{}, errors.New("unknown changeset")
}

func TestWalker_CollectsWholeChainDownToBottom(t *testing.T) {
	chain := linearHistory(5)
	src := linearSource{chain: chain}

	w := NewWalker(src, chain[0], hg.NullHash)
	got, err := Collect(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, chain, got)
}

func TestWalker_StopsAtNamedBottomExclusive(t *testing.T) {
	chain := linearHistory(5)
	src := linearSource{chain: chain}

	w := NewWalker(src, chain[0], chain[3])
	got, err := Collect(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, chain[:3], got)
}

func TestWalker_SingleNodeWhenTopIsRoot(t *testing.T) {
	chain := linearHistory(1)
	src := linearSource{chain: chain}

	w := NewWalker(src, chain[0], hg.NullHash)
	got, err := Collect(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, chain, got)
}

func TestWalker_PropagatesParentLookupError(t *testing.T) {
	src := linearSource{chain: nil}
	top := linearHistory(1)[0]

	w := NewWalker(src, top, hg.NullHash)
	_, err := Collect(context.Background(), w)
	assert.Error(t, err)
}

// TestSample_ThirtyTwoAncestors walks a 32-changeset linear history and
// checks that Sample keeps exactly the raw-chain indices 1, 2, 4, 8, 16.
func TestSample_ThirtyTwoAncestors(t *testing.T) {
	chain := linearHistory(32)
	src := linearSource{chain: chain}

	w := NewWalker(src, chain[0], hg.NullHash)
	got, err := Collect(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, chain, got)

	sampled := Sample(got)
	want := []hg.NodeHash{chain[1], chain[2], chain[4], chain[8], chain[16]}
	assert.Equal(t, want, sampled)
}

func TestSample_ShortChainYieldsFewerPoints(t *testing.T) {
	chain := linearHistory(3)
	assert.Equal(t, []hg.NodeHash{chain[1], chain[2]}, Sample(chain))
}

func TestSample_EmptyChainYieldsNoPoints(t *testing.T) {
	assert.Nil(t, Sample(nil))
}
