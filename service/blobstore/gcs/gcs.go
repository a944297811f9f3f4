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

// Package gcs implements a blobstore.Store backed by a Google Cloud
// Storage bucket, the remote backend for multi-host deployments.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/basinhq/hgdps/model/hg"
)

// Store reads and writes blobs as objects of a single GCS bucket, one
// object per key, uncompressed: GCS already compresses and deduplicates
// at rest, so this backend does not layer zstd on top the way the local
// backends do.
type Store struct {
	bucket *storage.BucketHandle
}

// New wraps an already-resolved bucket handle.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get downloads the object named key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not open object %q: %w", key, hg.ErrStorageIO)
	}
	defer r.Close()

	value, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("could not read object %q: %w", key, hg.ErrStorageIO)
	}
	return value, true, nil
}

// Put uploads value as the object named key, overwriting any prior value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("could not write object %q: %w", key, hg.ErrStorageIO)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not finalize object %q: %w", key, hg.ErrStorageIO)
	}
	return nil
}
