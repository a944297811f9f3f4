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
	"errors"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/basinhq/hgdps/model/hg"
)

// Non-nil valid values commonly needed by tests of hgdps components.
var (
	NoopLogger = zerolog.New(io.Discard)

	GenericError = errors.New("dummy error")
)

// GenericNodeHashes returns number distinct, deterministic node hashes.
func GenericNodeHashes(number int) []hg.NodeHash {
	random := rand.New(rand.NewSource(0))

	nodes := make([]hg.NodeHash, 0, number)
	for i := 0; i < number; i++ {
		var node hg.NodeHash
		random.Read(node[:])
		nodes = append(nodes, node)
	}
	return nodes
}

// GenericNodeHash returns the index'th deterministic node hash.
func GenericNodeHash(index int) hg.NodeHash {
	return GenericNodeHashes(index + 1)[index]
}

// GenericChangeset returns a changeset referencing the index'th node
// hash, with a distinct manifest and no parents.
func GenericChangeset(index int) hg.Changeset {
	return hg.Changeset{
		Node:        GenericNodeHash(index),
		Manifest:    GenericNodeHash(index + 1000),
		User:        "test",
		Date:        time.Unix(1600000000, 0).UTC(),
		Description: "generic commit",
	}
}

// GenericBlob returns a deterministic byte slice of the given length.
func GenericBlob(index, length int) []byte {
	random := rand.New(rand.NewSource(int64(index) + 1))
	blob := make([]byte, length)
	random.Read(blob)
	return blob
}
