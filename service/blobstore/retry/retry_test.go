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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	failures int
	gets     int
	puts     int
	values   map[string][]byte
}

func (f *flakyStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.gets++
	if f.gets <= f.failures {
		return nil, false, errors.New("transient read failure")
	}
	v, ok := f.values[key]
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (f *flakyStore) Put(_ context.Context, key string, value []byte) error {
	f.puts++
	if f.puts <= f.failures {
		return errors.New("transient write failure")
	}
	if f.values == nil {
		f.values = map[string][]byte{}
	}
	f.values[key] = value
	return nil
}

func noSleep(time.Duration) {}

func TestStore_GetSucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyStore{failures: 2, values: map[string][]byte{"k": []byte("v")}}
	s := New(inner)
	s.sleep = noSleep

	got, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 3, inner.gets)
}

func TestStore_GetGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyStore{failures: 100}
	s := New(inner)
	s.sleep = noSleep

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Equal(t, maxRetries+1, inner.gets)
}

func TestStore_GetMissingKeyIsNotRetried(t *testing.T) {
	inner := &flakyStore{values: map[string][]byte{}}
	s := New(inner)
	s.sleep = noSleep

	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, inner.gets)
}

func TestStore_PutSucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyStore{failures: 1}
	s := New(inner)
	s.sleep = noSleep

	err := s.Put(context.Background(), "k", []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.puts)
}

func TestBackoff_QuadruplesEachAttempt(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(0))
	assert.Equal(t, 400*time.Millisecond, backoff(1))
	assert.Equal(t, 1600*time.Millisecond, backoff(2))
	assert.Equal(t, 6400*time.Millisecond, backoff(3))
}
