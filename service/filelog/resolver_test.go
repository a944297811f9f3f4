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

package filelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinhq/hgdps/model/hg"
)

// emptyRepo never resolves a base; every test feeds a self-contained
// stream except the reversed-order scenario, which must fail precisely
// because it falls through to this repository.
type emptyRepo struct{}

func (emptyRepo) GetFileContent(context.Context, hg.NodeHash) ([]byte, error) {
	return nil, assert.AnError
}

func hashByte(b byte) hg.NodeHash {
	var h hg.NodeHash
	h[0] = b
	return h
}

func mustPath(t *testing.T, s string) hg.MPath {
	t.Helper()
	p, err := hg.NewMPath([]byte(s))
	require.NoError(t, err)
	return p
}

func feed(t *testing.T, recs []hg.FilelogDeltaed) ([]hg.Filelog, error) {
	t.Helper()
	ctx := context.Background()
	in := make(chan hg.FilelogDeltaed, len(recs))
	for _, r := range recs {
		in <- r
	}
	close(in)

	out := Resolve(ctx, emptyRepo{}, nil, in)
	return Collect(out)
}

// computeDelta builds a minimal single-fragment delta turning b1 into b2,
// mirroring the reference's test helper of the same name.
func computeDelta(b1, b2 []byte) hg.Delta {
	start := 0
	for start < len(b1) && start < len(b2) && b1[start] == b2[start] {
		start++
	}
	endB1 := len(b1)
	endB2 := len(b2)
	for endB1 > start && endB2 > start && b1[endB1-1] == b2[endB2-1] {
		endB1--
		endB2--
	}
	content := make([]byte, endB2-start)
	copy(content, b2[start:endB2])
	return hg.Delta{Fragments: []hg.Fragment{{Start: start, End: endB1, Content: content}}}
}

// TestResolve_TwoIndependentFullTexts is scenario S1.
func TestResolve_TwoIndependentFullTexts(t *testing.T) {
	f1 := hg.FilelogDeltaed{
		Path: mustPath(t, "test"),
		Chunk: hg.CgDeltaChunk{
			Node:     hashByte(1),
			Base:     hg.NullHash,
			Delta:    hg.NewFullText([]byte("test file content")),
			P1:       hashByte(2),
			P2:       hashByte(3),
			Linknode: hashByte(4),
		},
	}
	f2 := hg.FilelogDeltaed{
		Path: mustPath(t, "test2"),
		Chunk: hg.CgDeltaChunk{
			Node:     hashByte(5),
			Base:     hg.NullHash,
			Delta:    hg.NewFullText([]byte("test2 file content")),
			P1:       hashByte(6),
			P2:       hashByte(7),
			Linknode: hashByte(8),
		},
	}

	got, err := feed(t, []hg.FilelogDeltaed{f1, f2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []byte("test file content"), got[0].Blob)
	assert.Equal(t, []byte("test2 file content"), got[1].Blob)
	require.NotNil(t, got[0].P1)
	assert.Equal(t, hashByte(2), *got[0].P1)
}

// TestResolve_ChainedDeltaForwardOrder is scenario S2.
func TestResolve_ChainedDeltaForwardOrder(t *testing.T) {
	ones := hashByte(1)
	fives := hashByte(5)

	a := hg.FilelogDeltaed{
		Path: mustPath(t, "test"),
		Chunk: hg.CgDeltaChunk{
			Node:  ones,
			Base:  hg.NullHash,
			Delta: hg.NewFullText([]byte("test file content")),
		},
	}
	b := hg.FilelogDeltaed{
		Path: mustPath(t, "test"),
		Chunk: hg.CgDeltaChunk{
			Node:  fives,
			Base:  ones,
			Delta: computeDelta([]byte("test file content"), []byte("test2 file content")),
		},
	}

	got, err := feed(t, []hg.FilelogDeltaed{a, b})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("test file content"), got[0].Blob)
	assert.Equal(t, []byte("test2 file content"), got[1].Blob)
}

// TestResolve_ChainedDeltaReversedOrderFails is scenario S3: the record
// referencing an unresolved base arrives first, so resolution must fail.
func TestResolve_ChainedDeltaReversedOrderFails(t *testing.T) {
	ones := hashByte(1)
	fives := hashByte(5)

	a := hg.FilelogDeltaed{
		Path: mustPath(t, "test"),
		Chunk: hg.CgDeltaChunk{
			Node:  ones,
			Base:  hg.NullHash,
			Delta: hg.NewFullText([]byte("test file content")),
		},
	}
	b := hg.FilelogDeltaed{
		Path: mustPath(t, "test"),
		Chunk: hg.CgDeltaChunk{
			Node:  fives,
			Base:  ones,
			Delta: computeDelta([]byte("test file content"), []byte("test2 file content")),
		},
	}

	_, err := feed(t, []hg.FilelogDeltaed{b, a})
	assert.Error(t, err)
}

// TestResolve_ChainOfDeltas is invariant 4: a chain of deltas, each
// against its immediate predecessor, resolves in order.
func TestResolve_ChainOfDeltas(t *testing.T) {
	contents := [][]byte{
		[]byte("v1"),
		[]byte("v2 longer"),
		[]byte("v3 even longer still"),
		[]byte("v4"),
	}

	var recs []hg.FilelogDeltaed
	var prevNode hg.NodeHash
	for i, content := range contents {
		node := hashByte(byte(i + 1))
		base := hg.NullHash
		delta := hg.NewFullText(content)
		if i > 0 {
			base = prevNode
			delta = computeDelta(contents[i-1], content)
		}
		recs = append(recs, hg.FilelogDeltaed{
			Path: mustPath(t, "f"),
			Chunk: hg.CgDeltaChunk{
				Node:  node,
				Base:  base,
				Delta: delta,
			},
		})
		prevNode = node
	}

	got, err := feed(t, recs)
	require.NoError(t, err)
	require.Len(t, got, len(contents))
	for i, content := range contents {
		assert.Equal(t, content, got[i].Blob)
	}
}

// TestResolve_EmptyBlobRoundtrips is a boundary behavior: an empty file
// blob roundtrips as an empty byte slice, and NullHash parent slots map
// to nil.
func TestResolve_EmptyBlobRoundtrips(t *testing.T) {
	rec := hg.FilelogDeltaed{
		Path: mustPath(t, "empty"),
		Chunk: hg.CgDeltaChunk{
			Node:  hashByte(1),
			Base:  hg.NullHash,
			Delta: hg.NewFullText(nil),
		},
	}

	got, err := feed(t, []hg.FilelogDeltaed{rec})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Blob)
	assert.Nil(t, got[0].P1)
	assert.Nil(t, got[0].P2)
}
