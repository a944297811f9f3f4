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

import "fmt"

// Fragment replaces base[Start:End] with Content. Start <= End, and
// fragments within a Delta are disjoint and ordered by Start.
type Fragment struct {
	Start   int
	End     int
	Content []byte
}

// Delta is an ordered sequence of fragments to apply against a base buffer.
type Delta struct {
	Fragments []Fragment
}

// NewFullText builds a delta that replaces the whole (empty) base with
// content — a full-text revision has no predecessor.
func NewFullText(content []byte) Delta {
	return Delta{Fragments: []Fragment{{Start: 0, End: 0, Content: content}}}
}

// validate checks fragment ordering and bounds against a base of length n.
func (d Delta) validate(n int) error {
	cursor := 0
	for _, frag := range d.Fragments {
		if frag.Start > frag.End {
			return fmt.Errorf("%w: fragment start %d > end %d", ErrInvalidDelta, frag.Start, frag.End)
		}
		if frag.Start < cursor {
			return fmt.Errorf("%w: fragment start %d precedes previous end %d", ErrInvalidDelta, frag.Start, cursor)
		}
		if frag.End > n {
			return fmt.Errorf("%w: fragment end %d exceeds base length %d", ErrInvalidDelta, frag.End, n)
		}
		cursor = frag.End
	}
	return nil
}

// Apply walks the fragments in order, copying unchanged base slices and
// splicing in each fragment's replacement content.
func Apply(base []byte, d Delta) ([]byte, error) {
	if err := d.validate(len(base)); err != nil {
		return nil, err
	}

	size := len(base)
	for _, frag := range d.Fragments {
		size += len(frag.Content) - (frag.End - frag.Start)
	}
	out := make([]byte, 0, size)

	cursor := 0
	for _, frag := range d.Fragments {
		out = append(out, base[cursor:frag.Start]...)
		out = append(out, frag.Content...)
		cursor = frag.End
	}
	out = append(out, base[cursor:]...)

	return out, nil
}
