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

import "context"

// Blobstore is a function-field mock of blobstore.Store.
type Blobstore struct {
	GetFunc func(ctx context.Context, key string) ([]byte, bool, error)
	PutFunc func(ctx context.Context, key string, value []byte) error
}

// BaselineBlobstore returns a Blobstore that reports every key missing
// and accepts every write.
func BaselineBlobstore() *Blobstore {
	return &Blobstore{
		GetFunc: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, nil
		},
		PutFunc: func(context.Context, string, []byte) error {
			return nil
		},
	}
}

func (b *Blobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.GetFunc(ctx, key)
}

func (b *Blobstore) Put(ctx context.Context, key string, value []byte) error {
	return b.PutFunc(ctx, key, value)
}
