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

package bundle2

import (
	"context"
	"fmt"
)

// KeyValueLookup resolves a single key within a namespace (e.g. a
// bookmark name to its target node hash, hex-encoded). A lookup that
// races against a concurrent delete returns ok=false, which the listkeys
// part builder treats as "drop this entry silently", not as an error.
type KeyValueLookup interface {
	Names(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, name string) (value string, ok bool, err error)
}

// ListkeysPart builds the `listkeys` part for namespace, enumerating
// names then resolving each one's value. A name whose value lookup races
// to "not found" is dropped, never fails the whole bundle — matching the
// reference's documented race-tolerant behavior.
func ListkeysPart(ctx context.Context, namespace string, src KeyValueLookup) (Part, error) {
	names, err := src.Names(ctx)
	if err != nil {
		return Part{}, fmt.Errorf("could not enumerate %s keys: %w", namespace, err)
	}

	var payload []byte
	for _, name := range names {
		value, ok, err := src.Lookup(ctx, name)
		if err != nil {
			return Part{}, fmt.Errorf("could not look up %s key %q: %w", namespace, name, err)
		}
		if !ok {
			continue
		}
		payload = append(payload, []byte(name)...)
		payload = append(payload, '\t')
		payload = append(payload, []byte(value)...)
		payload = append(payload, '\n')
	}

	return Part{
		Name:    "listkeys",
		Params:  map[string]string{"namespace": namespace},
		Payload: payload,
	}, nil
}
