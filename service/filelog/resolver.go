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

// Package filelog streams an incoming changegroup's delta records into
// fully-materialized file revisions.
package filelog

import (
	"context"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/cache"
)

// Result carries either a resolved Filelog or the error that terminated
// the stream.
type Result struct {
	Filelog hg.Filelog
	Err     error
}

// Resolve consumes in, strictly in order, and emits one Result per
// record on the returned channel. The input stream's order determines
// resolvability: a record whose base is neither NullHash nor already
// decoded nor resolvable from repo fails the whole stream. A single
// record failure terminates the output channel with that error; no
// further records are emitted.
//
// The delta cache is created for this call and scoped to it: it is never
// shared across separate calls to Resolve.
func Resolve(ctx context.Context, repo cache.BaseFetcher, stats cache.Stats, in <-chan hg.FilelogDeltaed) <-chan Result {
	out := make(chan Result)
	deltaCache := cache.New(repo, stats)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-in:
				if !ok {
					return
				}

				fl, err := resolveOne(ctx, deltaCache, rec)
				if err != nil {
					out <- Result{Err: err}
					return
				}

				select {
				case out <- Result{Filelog: fl}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func resolveOne(ctx context.Context, deltaCache *cache.DeltaCache, rec hg.FilelogDeltaed) (hg.Filelog, error) {
	chunk := rec.Chunk

	base := chunk.Base.ToOption()
	future := deltaCache.Decode(ctx, chunk.Node, base, chunk.Delta)

	blob, err := future.Wait(ctx)
	if err != nil {
		return hg.Filelog{}, err
	}

	path, err := hg.NewFileRepoPath(rec.Path.Bytes())
	if err != nil {
		return hg.Filelog{}, err
	}

	return hg.Filelog{
		Path:     path,
		Node:     chunk.Node,
		P1:       chunk.P1.ToOption(),
		P2:       chunk.P2.ToOption(),
		Linknode: chunk.Linknode,
		Blob:     blob,
	}, nil
}

// Collect drains a Result channel into a slice, returning the first
// error encountered, if any.
func Collect(ch <-chan Result) ([]hg.Filelog, error) {
	var out []hg.Filelog
	for r := range ch {
		if r.Err != nil {
			return out, r.Err
		}
		out = append(out, r.Filelog)
	}
	return out, nil
}
