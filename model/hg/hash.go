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

package hg

import (
	"encoding/hex"
	"fmt"
)

// NodeHash is a 20-byte content identifier, the unit of addressing for
// changesets, manifests and file revisions.
type NodeHash [20]byte

// NullHash is the sentinel value meaning "absent" wherever a NodeHash slot
// is optional on the wire.
var NullHash NodeHash

// IsNull reports whether h is the all-zero sentinel.
func (h NodeHash) IsNull() bool {
	return h == NullHash
}

// String renders the hash as lowercase hex, the canonical hg representation.
func (h NodeHash) String() string {
	return hex.EncodeToString(h[:])
}

// NodeHashFromHex parses a 40-character hex string into a NodeHash.
func NodeHashFromHex(s string) (NodeHash, error) {
	var h NodeHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("could not decode node hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid node hash length (have: %d, want: %d)", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// ToOption maps the NullHash sentinel to nil and any other value to a
// pointer to a copy of h — the Go equivalent of the wire's Option<NodeHash>.
func (h NodeHash) ToOption() *NodeHash {
	if h.IsNull() {
		return nil
	}
	cp := h
	return &cp
}
