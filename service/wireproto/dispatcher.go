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

// Package wireproto implements the wireprotocol commands a client drives
// over one connection: hello, heads, known, between, getbundle,
// changegroup, unbundle.
package wireproto

import (
	"context"
	"fmt"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/ancestor"
	"github.com/basinhq/hgdps/service/bundle2"
)

// wireprotoCaps are the bare (non-bundle2) capabilities this server
// advertises from hello.
var wireprotoCaps = []string{"lookup", "known", "getbundle"}

// Repository is the subset of the repository contract the dispatcher
// needs to answer wireprotocol commands.
type Repository interface {
	GetHeads(ctx context.Context) (<-chan hg.NodeHash, <-chan error)
	GetChangesetByNodeID(ctx context.Context, node hg.NodeHash) (hg.Changeset, error)
	ChangesetExists(ctx context.Context, node hg.NodeHash) (bool, error)
	Bookmarks(ctx context.Context) (bundle2.KeyValueLookup, error)
}

// Dispatcher implements the wireprotocol commands against a Repository.
type Dispatcher struct {
	repo Repository
}

// New creates a Dispatcher serving repo.
func New(repo Repository) *Dispatcher {
	return &Dispatcher{repo: repo}
}

// Hello returns the capability map a client inspects before issuing any
// other command: the bare wireprotocol capabilities plus the
// percent-encoded bundle2 capability string.
func (d *Dispatcher) Hello(_ context.Context) map[string][]string {
	caps := append([]string{}, wireprotoCaps...)
	caps = append(caps, "bundle2="+bundle2.DefaultCaps().Encode())
	return map[string][]string{"capabilities": caps}
}

// Heads drains the repository's head stream into a slice.
func (d *Dispatcher) Heads(ctx context.Context) ([]hg.NodeHash, error) {
	nodes, errs := d.repo.GetHeads(ctx)

	var out []hg.NodeHash
	for n := range nodes {
		out = append(out, n)
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("could not list heads: %w", err)
	}
	return out, nil
}

// Known reports, for each input node and in the same order, whether a
// changeset exists for it.
func (d *Dispatcher) Known(ctx context.Context, nodes []hg.NodeHash) ([]bool, error) {
	out := make([]bool, len(nodes))
	for i, node := range nodes {
		exists, err := d.repo.ChangesetExists(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("could not check changeset %s: %w", node, err)
		}
		out[i] = exists
	}
	return out, nil
}

// Pair is one (top, bottom) request to Between.
type Pair struct {
	Top    hg.NodeHash
	Bottom hg.NodeHash
}

type changesetSource struct {
	repo Repository
}

func (s changesetSource) Parents(ctx context.Context, node hg.NodeHash) (hg.Parents, error) {
	cs, err := s.repo.GetChangesetByNodeID(ctx, node)
	if err != nil {
		return hg.Parents{}, err
	}
	return cs.Parents(), nil
}

// Between resolves, for each input pair, the exponentially sampled p1
// ancestor chain from top down to (but not including) bottom.
func (d *Dispatcher) Between(ctx context.Context, pairs []Pair) ([][]hg.NodeHash, error) {
	src := changesetSource{repo: d.repo}

	out := make([][]hg.NodeHash, len(pairs))
	for i, pair := range pairs {
		w := ancestor.NewWalker(src, pair.Top, pair.Bottom)
		chain, err := ancestor.Collect(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("could not walk ancestors of %s: %w", pair.Top, err)
		}
		out[i] = ancestor.Sample(chain)
	}
	return out, nil
}

// GetbundleArgs is the request shape for getbundle: the set of heads the
// client wants, the set of common nodes it already has, and the key
// namespaces (e.g. "bookmarks") it wants a listkeys part for.
type GetbundleArgs struct {
	Heads    []hg.NodeHash `validate:"required,min=1"`
	Common   []hg.NodeHash
	Listkeys []string
}

// wantsListkeys reports whether namespace was requested in listkeys.
func wantsListkeys(listkeys []string, namespace string) bool {
	for _, ns := range listkeys {
		if ns == namespace {
			return true
		}
	}
	return false
}

// Getbundle builds a bundle2 envelope, including a listkeys part for
// bookmarks only if the client asked for it. The inner changegroup
// payload generator is an external collaborator (a revlog/delta encoder)
// not built by this repository; Getbundle emits the changegroup part's
// outer framing only, with an empty payload, so the envelope shape is
// byte-correct even though no revision data is packed into it yet.
func (d *Dispatcher) Getbundle(ctx context.Context, args GetbundleArgs) ([]byte, error) {
	b := bundle2.NewBuilder()

	if wantsListkeys(args.Listkeys, "bookmarks") {
		bookmarks, err := d.repo.Bookmarks(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not load bookmarks: %w", err)
		}

		listkeys, err := bundle2.ListkeysPart(ctx, "bookmarks", bookmarks)
		if err != nil {
			return nil, fmt.Errorf("could not build listkeys part: %w", err)
		}
		b.AddPart(listkeys)
	}

	b.AddPart(bundle2.Part{Name: "changegroup", Params: map[string]string{"version": "02"}})

	out, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build bundle2 envelope: %w", err)
	}
	return out, nil
}

// Changegroup accepts the roots a client is about to push ahead of
// streaming its changegroup part. It validates that every root is a
// well-formed, non-null node and otherwise acknowledges — the reference
// implementation documents this command as a stub pending a streaming
// apply path, and this server keeps that behavior but rejects malformed
// input instead of accepting it silently.
func (d *Dispatcher) Changegroup(_ context.Context, roots []hg.NodeHash) error {
	if roots == nil {
		return fmt.Errorf("changegroup: roots must not be nil: %w", hg.ErrProtocolViolation)
	}
	for _, root := range roots {
		if root.IsNull() {
			return fmt.Errorf("changegroup: root must not be NULL_HASH: %w", hg.ErrProtocolViolation)
		}
	}
	return nil
}

// Unbundle accepts the heads a client expects after applying its bundle.
// Like Changegroup, it is a validating stub: the actual bundle payload is
// not parsed or applied here.
func (d *Dispatcher) Unbundle(_ context.Context, heads []hg.NodeHash) error {
	if heads == nil {
		return fmt.Errorf("unbundle: heads must not be nil: %w", hg.ErrProtocolViolation)
	}
	for _, head := range heads {
		if head.IsNull() {
			return fmt.Errorf("unbundle: head must not be NULL_HASH: %w", hg.ErrProtocolViolation)
		}
	}
	return nil
}
