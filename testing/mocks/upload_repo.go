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
)

// UploadRepo is a function-field mock of upload.Repo.
type UploadRepo struct {
	UploadEntryFunc func(ctx context.Context, blob []byte, p1, p2 *hg.NodeHash, path hg.RepoPath) (hg.NodeHash, error)
}

// BaselineUploadRepo returns an UploadRepo whose UploadEntry always
// succeeds with the all-zero node.
func BaselineUploadRepo() *UploadRepo {
	return &UploadRepo{
		UploadEntryFunc: func(context.Context, []byte, *hg.NodeHash, *hg.NodeHash, hg.RepoPath) (hg.NodeHash, error) {
			return hg.NodeHash{}, nil
		},
	}
}

func (r *UploadRepo) UploadEntry(ctx context.Context, blob []byte, p1, p2 *hg.NodeHash, path hg.RepoPath) (hg.NodeHash, error) {
	return r.UploadEntryFunc(ctx, blob, p1, p2, path)
}
