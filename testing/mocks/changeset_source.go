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

// ChangesetSource is a function-field mock of ancestor.ChangesetSource.
type ChangesetSource struct {
	ParentsFunc func(ctx context.Context, node hg.NodeHash) (hg.Parents, error)
}

// BaselineChangesetSource returns a ChangesetSource where every node is a
// root (no parents).
func BaselineChangesetSource() *ChangesetSource {
	return &ChangesetSource{
		ParentsFunc: func(context.Context, hg.NodeHash) (hg.Parents, error) {
			return hg.Parents{}, nil
		},
	}
}

func (s *ChangesetSource) Parents(ctx context.Context, node hg.NodeHash) (hg.Parents, error) {
	return s.ParentsFunc(ctx, node)
}
