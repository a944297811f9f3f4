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

// Package blobstore defines the content-addressed byte store shared by the
// file, badger and GCS backends; the retry decorator that wraps any of them
// with a fixed backoff schedule lives in the retry subpackage.
package blobstore

import "context"

// Store is a content-addressed get/put byte store. Keys are opaque to the
// store; callers derive them from node hashes and repo paths. Get reports
// ok=false when the key is absent; err is non-nil only for a failure the
// store itself encountered (wrapped hg.ErrStorageIO).
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}
