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

import "context"

// KeyValueLookup is a function-field mock of bundle2.KeyValueLookup.
type KeyValueLookup struct {
	NamesFunc  func(ctx context.Context) ([]string, error)
	LookupFunc func(ctx context.Context, name string) (string, bool, error)
}

// BaselineKeyValueLookup returns a KeyValueLookup with no entries.
func BaselineKeyValueLookup() *KeyValueLookup {
	return &KeyValueLookup{
		NamesFunc: func(context.Context) ([]string, error) {
			return nil, nil
		},
		LookupFunc: func(context.Context, string) (string, bool, error) {
			return "", false, nil
		},
	}
}

func (l *KeyValueLookup) Names(ctx context.Context) ([]string, error) {
	return l.NamesFunc(ctx)
}

func (l *KeyValueLookup) Lookup(ctx context.Context, name string) (string, bool, error) {
	return l.LookupFunc(ctx, name)
}
