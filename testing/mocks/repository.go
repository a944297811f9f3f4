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

package mocks

import (
	"context"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/bundle2"
)

// Repository is a function-field mock of wireproto.Repository.
type Repository struct {
	GetHeadsFunc             func(ctx context.Context) (<-chan hg.NodeHash, <-chan error)
	GetChangesetByNodeIDFunc func(ctx context.Context, node hg.NodeHash) (hg.Changeset, error)
	ChangesetExistsFunc      func(ctx context.Context, node hg.NodeHash) (bool, error)
	BookmarksFunc            func(ctx context.Context) (bundle2.KeyValueLookup, error)
}

// BaselineRepository returns a Repository with no heads, no changesets
// and no bookmarks.
func BaselineRepository() *Repository {
	return &Repository{
		GetHeadsFunc: func(context.Context) (<-chan hg.NodeHash, <-chan error) {
			heads := make(chan hg.NodeHash)
			errs := make(chan error, 1)
			close(heads)
			errs <- nil
			close(errs)
			return heads, errs
		},
		GetChangesetByNodeIDFunc: func(context.Context, hg.NodeHash) (hg.Changeset, error) {
			return hg.Changeset{}, hg.ErrNotFound
		},
		ChangesetExistsFunc: func(context.Context, hg.NodeHash) (bool, error) {
			return false, nil
		},
		BookmarksFunc: func(context.Context) (bundle2.KeyValueLookup, error) {
			return BaselineKeyValueLookup(), nil
		},
	}
}

func (r *Repository) GetHeads(ctx context.Context) (<-chan hg.NodeHash, <-chan error) {
	return r.GetHeadsFunc(ctx)
}

func (r *Repository) GetChangesetByNodeID(ctx context.Context, node hg.NodeHash) (hg.Changeset, error) {
	return r.GetChangesetByNodeIDFunc(ctx, node)
}

func (r *Repository) ChangesetExists(ctx context.Context, node hg.NodeHash) (bool, error) {
	return r.ChangesetExistsFunc(ctx, node)
}

func (r *Repository) Bookmarks(ctx context.Context) (bundle2.KeyValueLookup, error) {
	return r.BookmarksFunc(ctx)
}
