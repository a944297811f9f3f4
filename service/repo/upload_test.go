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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinhq/hgdps/model/hg"
)

func TestRepo_UploadEntryIsDeterministicAndReadable(t *testing.T) {
	r, _ := openTestRepo(t)
	ctx := context.Background()

	var p1 hg.NodeHash
	p1[0] = 3

	node, err := r.UploadEntry(ctx, []byte("content"), &p1, nil, hg.RepoPath{})
	require.NoError(t, err)
	assert.False(t, node.IsNull())

	again, err := r.UploadEntry(ctx, []byte("content"), &p1, nil, hg.RepoPath{})
	require.NoError(t, err)
	assert.Equal(t, node, again)

	got, err := r.GetFileContent(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), got)
}

func TestRepo_UploadEntryOrdersParentsRegardlessOfArgOrder(t *testing.T) {
	r, _ := openTestRepo(t)
	ctx := context.Background()

	var a, b hg.NodeHash
	a[0], b[0] = 1, 2

	n1, err := r.UploadEntry(ctx, []byte("text"), &a, &b, hg.RepoPath{})
	require.NoError(t, err)
	n2, err := r.UploadEntry(ctx, []byte("text"), &b, &a, hg.RepoPath{})
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
}
