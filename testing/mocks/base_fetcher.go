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

// BaseFetcher is a function-field mock of cache.BaseFetcher.
type BaseFetcher struct {
	GetFileContentFunc func(ctx context.Context, node hg.NodeHash) ([]byte, error)
}

// BaselineBaseFetcher returns a BaseFetcher that fails every lookup; tests
// that expect a hit should override GetFileContentFunc.
func BaselineBaseFetcher() *BaseFetcher {
	return &BaseFetcher{
		GetFileContentFunc: func(context.Context, hg.NodeHash) ([]byte, error) {
			return nil, hg.ErrNotFound
		},
	}
}

func (f *BaseFetcher) GetFileContent(ctx context.Context, node hg.NodeHash) ([]byte, error) {
	return f.GetFileContentFunc(ctx, node)
}
