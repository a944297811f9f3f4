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

// Package bundle2 builds an uncompressed bundle2 envelope, as served by
// getbundle, and the capability string advertised by hello.
package bundle2

import (
	"sort"
	"strings"
)

// percentEncode implements the hg-standard percent encoder: reserved
// characters become %HH in uppercase hex, unreserved characters pass
// through unchanged.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteString(strings.ToUpper(hexByte(c)))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

const hexDigits = "0123456789abcdef"

func hexByte(c byte) string {
	return string([]byte{hexDigits[c>>4], hexDigits[c&0xf]})
}

// Caps is the advertised bundle2 capability map. Values are the list of
// supported versions/arguments for that key; an empty slice means the
// key carries no value (bare presence).
type Caps map[string][]string

// DefaultCaps is the capability map this server advertises.
func DefaultCaps() Caps {
	return Caps{
		"HG20":        nil,
		"listkeys":    nil,
		"changegroup": {"02"},
	}
}

// Encode renders caps as newline-joined "key" or "key=v1,v2" entries,
// then percent-encodes the whole string. Map iteration order is not
// stable in Go, same as in the reference; this implementation fixes an
// order by sorting keys, which the wire format does not require clients
// to rely on but which makes output deterministic for tests.
func (c Caps) Encode() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		values := c[k]
		if len(values) == 0 {
			entries = append(entries, k)
			continue
		}
		entries = append(entries, k+"="+strings.Join(values, ","))
	}

	return percentEncode(strings.Join(entries, "\n"))
}
