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

// Package file implements a blobstore.Store backed by the local
// filesystem, one zstd-compressed file per key.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/basinhq/hgdps/model/hg"
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Errorf("could not initialize blob compressor: %w", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Errorf("could not initialize blob decompressor: %w", err))
	}
}

// Store keeps one file per key under root, named by a two-level fan-out of
// the key's leading bytes so a single directory never holds the whole set.
type Store struct {
	root string
}

// New creates a file-backed store rooted at dir. The directory is created
// if it does not already exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create blobstore root %q: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.root, key)
	}
	return filepath.Join(s.root, key[:2], key)
}

// Get reads and decompresses the blob stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not read blob %q: %w", key, hg.ErrStorageIO)
	}

	value, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not decompress blob %q: %w", key, hg.ErrStorageIO)
	}
	return value, true, nil
}

// Put compresses value and writes it under key, creating the fan-out
// directory as needed.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("could not create blob directory for %q: %w", key, hg.ErrStorageIO)
	}

	compressed := encoder.EncodeAll(value, nil)
	if err := os.WriteFile(dst, compressed, 0o644); err != nil {
		return fmt.Errorf("could not write blob %q: %w", key, hg.ErrStorageIO)
	}
	return nil
}
