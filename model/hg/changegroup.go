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

// CgDeltaChunk is a single record in an incoming changegroup stream: a
// delta to apply to reconstruct one file revision.
type CgDeltaChunk struct {
	Node     NodeHash
	Base     NodeHash // NullHash means "apply against empty".
	Delta    Delta
	P1       NodeHash
	P2       NodeHash
	Linknode NodeHash
}

// FilelogDeltaed is the unprocessed input record the resolver consumes.
type FilelogDeltaed struct {
	Path  MPath
	Chunk CgDeltaChunk
}

// Filelog is a single, fully-materialized file revision: the resolver's
// output. Node and Linknode are always non-null; P1/P2 are nil iff the
// wire slot was NullHash; Blob holds the reconstructed content.
type Filelog struct {
	Path     RepoPath
	Node     NodeHash
	P1       *NodeHash
	P2       *NodeHash
	Linknode NodeHash
	Blob     []byte
}
