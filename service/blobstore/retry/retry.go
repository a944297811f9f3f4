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

// Package retry decorates a blobstore.Store with a fixed backoff schedule,
// for wrapping a remote backend (GCS) whose individual requests
// occasionally fail transiently during a bulk import.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/basinhq/hgdps/service/blobstore"
)

// maxRetries is the number of retries after the first attempt: 100ms,
// 400ms, 1.6s, 6.4s, then give up.
const maxRetries = 4

// backoff returns the sleep before retry number n (0-indexed): 100ms * 4^n.
func backoff(n int) time.Duration {
	d := 100 * time.Millisecond
	for i := 0; i < n; i++ {
		d *= 4
	}
	return d
}

// Store wraps an inner blobstore.Store, retrying a failed Get or Put up to
// maxRetries times.
type Store struct {
	inner blobstore.Store
	sleep func(time.Duration)
}

// New wraps inner with the default retry schedule.
func New(inner blobstore.Store) *Store {
	return &Store{inner: inner, sleep: time.Sleep}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.sleep, backoff(attempt-1)); err != nil {
				return nil, false, err
			}
		}

		value, ok, err := s.inner.Get(ctx, key)
		if err == nil {
			return value, ok, nil
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("get %q failed after %d attempts: %w", key, maxRetries+1, lastErr)
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.sleep, backoff(attempt-1)); err != nil {
				return err
			}
		}

		err := s.inner.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("put %q failed after %d attempts: %w", key, maxRetries+1, lastErr)
}

// sleepCtx waits out d via sleep (time.Sleep in production, a stub in
// tests), but returns early if ctx is cancelled first.
func sleepCtx(ctx context.Context, sleep func(time.Duration), d time.Duration) error {
	done := make(chan struct{})
	go func() {
		sleep(d)
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
