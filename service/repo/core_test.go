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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinhq/hgdps/model/hg"
)

type memStore struct {
	values map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key string, value []byte) error {
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func openTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	store := newMemStore()
	r, err := Open(t.TempDir(), store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, store
}

func TestRepo_GetFileContentCachesBeforeBlobstore(t *testing.T) {
	r, store := openTestRepo(t)
	ctx := context.Background()

	var node hg.NodeHash
	node[0] = 7
	require.NoError(t, r.PutFileContent(ctx, node, []byte("hello")))

	got, err := r.GetFileContent(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Mutate the blobstore directly: a cached read must not see this.
	store.values[node.String()] = []byte("mutated")
	got, err = r.GetFileContent(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestRepo_GetFileContentMissingReturnsErrNotFound(t *testing.T) {
	r, _ := openTestRepo(t)

	var node hg.NodeHash
	node[0] = 9
	_, err := r.GetFileContent(context.Background(), node)
	assert.ErrorIs(t, err, hg.ErrNotFound)
}

func TestRepo_ChangesetRoundtripsAndExists(t *testing.T) {
	r, _ := openTestRepo(t)
	ctx := context.Background()

	var node, p1 hg.NodeHash
	node[0], p1[0] = 1, 2

	cs := hg.Changeset{
		Node:        node,
		P1:          p1,
		User:        "alice",
		Date:        time.Unix(1700000000, 0).UTC(),
		Description: "initial commit",
	}
	require.NoError(t, r.PutChangeset(ctx, cs))

	exists, err := r.ChangesetExists(ctx, node)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := r.GetChangesetByNodeID(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, cs.User, got.User)
	assert.Equal(t, cs.Description, got.Description)
	assert.True(t, got.Date.Equal(cs.Date))

	p1got, ok := got.Parents().P1()
	require.True(t, ok)
	assert.Equal(t, p1, p1got)
}

func TestRepo_ChangesetExistsFalseForUnknownNode(t *testing.T) {
	r, _ := openTestRepo(t)

	var node hg.NodeHash
	node[0] = 99
	exists, err := r.ChangesetExists(context.Background(), node)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepo_SetHeadsReplacesPriorSet(t *testing.T) {
	r, _ := openTestRepo(t)
	ctx := context.Background()

	var a, b, c hg.NodeHash
	a[0], b[0], c[0] = 1, 2, 3

	require.NoError(t, r.SetHeads(ctx, []hg.NodeHash{a, b}))
	assert.ElementsMatch(t, []hg.NodeHash{a, b}, drainHeads(t, r))

	require.NoError(t, r.SetHeads(ctx, []hg.NodeHash{c}))
	assert.ElementsMatch(t, []hg.NodeHash{c}, drainHeads(t, r))
}

func drainHeads(t *testing.T, r *Repo) []hg.NodeHash {
	t.Helper()
	nodes, errs := r.GetHeads(context.Background())

	var got []hg.NodeHash
	for n := range nodes {
		got = append(got, n)
	}
	require.NoError(t, <-errs)
	return got
}

func TestRepo_BookmarksRoundtripAndDropMissing(t *testing.T) {
	r, _ := openTestRepo(t)
	ctx := context.Background()

	var node hg.NodeHash
	node[0] = 42
	require.NoError(t, r.SetBookmark(ctx, "main", node))

	bm, err := r.Bookmarks(ctx)
	require.NoError(t, err)

	names, err := bm.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)

	value, ok, err := bm.Lookup(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, node.String(), value)

	_, ok, err = bm.Lookup(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
