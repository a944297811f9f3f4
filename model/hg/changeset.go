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

import "time"

// Changeset is a single commit: a manifest revision plus the metadata
// describing who made it and why. The ancestor walker only ever needs
// Parents, but the repository persists the rest alongside it.
type Changeset struct {
	Node        NodeHash
	Manifest    NodeHash
	P1          NodeHash
	P2          NodeHash
	User        string
	Date        time.Time
	Description string
}

// Parents derives the tagged Parents value from the changeset's raw
// parent slots.
func (c Changeset) Parents() Parents {
	return ParentsFromWire(c.P1, c.P2)
}
