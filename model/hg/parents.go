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

// Parents is the tagged `{None, One(NodeHash), Two(NodeHash, NodeHash)}`
// set of changeset/manifest parents. On the wire it is always two
// NodeHash slots, either of which being NullHash means "absent".
type Parents struct {
	p1, p2 NodeHash
	hasP1  bool
	hasP2  bool
}

// ParentsFromWire normalizes the two wire slots (NullHash meaning absent)
// into a Parents value.
func ParentsFromWire(p1, p2 NodeHash) Parents {
	return Parents{
		p1:    p1,
		p2:    p2,
		hasP1: !p1.IsNull(),
		hasP2: !p2.IsNull(),
	}
}

// P1 returns the first parent, the one the ancestor walker follows.
func (p Parents) P1() (NodeHash, bool) {
	return p.p1, p.hasP1
}

// P2 returns the second parent, if any.
func (p Parents) P2() (NodeHash, bool) {
	return p.p2, p.hasP2
}

// None reports whether this changeset has no parents (a root).
func (p Parents) None() bool {
	return !p.hasP1 && !p.hasP2
}
