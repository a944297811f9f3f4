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
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/basinhq/hgdps/model/hg"
)

// UploadEntry satisfies upload.Repo: it derives the file revision's node
// hash from its parents and content (sha1 of the lexicographically
// smaller parent, the larger parent, then the text), persists the blob
// under that node, and returns it.
func (r *Repo) UploadEntry(ctx context.Context, blob []byte, p1, p2 *hg.NodeHash, path hg.RepoPath) (hg.NodeHash, error) {
	node := hashRevision(p1, p2, blob)
	if err := r.PutFileContent(ctx, node, blob); err != nil {
		return hg.NodeHash{}, fmt.Errorf("could not upload entry at %s: %w", path, err)
	}
	return node, nil
}

func hashRevision(p1, p2 *hg.NodeHash, text []byte) hg.NodeHash {
	a, b := deref(p1), deref(p2)
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	h := sha1.New()
	h.Write(a[:])
	h.Write(b[:])
	h.Write(text)

	var node hg.NodeHash
	copy(node[:], h.Sum(nil))
	return node
}

func deref(p *hg.NodeHash) hg.NodeHash {
	if p == nil {
		return hg.NullHash
	}
	return *p
}
