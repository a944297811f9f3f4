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

package repo

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/basinhq/hgdps/model/hg"
)

var codec cbor.EncMode

func init() {
	var err error
	codec, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("could not initialize changeset codec: %w", err))
	}
}

const (
	prefixChangeset uint8 = iota + 1
	prefixHead
	prefixBookmark
)

func changesetKey(node hg.NodeHash) []byte {
	return append([]byte{prefixChangeset}, node[:]...)
}

func headKey(node hg.NodeHash) []byte {
	return append([]byte{prefixHead}, node[:]...)
}

func bookmarkKey(name string) []byte {
	return append([]byte{prefixBookmark}, []byte(name)...)
}
