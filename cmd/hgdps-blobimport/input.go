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

package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/basinhq/hgdps/model/hg"
)

// recordJSON is the on-disk shape of one pre-extracted changegroup
// record: this repository stands in for the external revlog reader that
// would normally produce the changegroup stream, serializing its output
// to one JSON file per file revision.
type recordJSON struct {
	Path     string     `json:"path"`
	Node     string     `json:"node"`
	Base     string     `json:"base"`
	P1       string     `json:"p1"`
	P2       string     `json:"p2"`
	Linknode string     `json:"linknode"`
	Fulltext string     `json:"fulltext"`
	Delta    *deltaJSON `json:"delta"`
}

type deltaJSON struct {
	Fragments []fragmentJSON `json:"fragments"`
}

type fragmentJSON struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Content string `json:"content"` // base64
}

func parseRecord(raw []byte) (hg.FilelogDeltaed, error) {
	var rec recordJSON
	if err := json.Unmarshal(raw, &rec); err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("could not parse record JSON: %w", err)
	}

	path, err := hg.NewMPath([]byte(rec.Path))
	if err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("invalid path %q: %w", rec.Path, err)
	}

	node, err := hg.NodeHashFromHex(rec.Node)
	if err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("invalid node: %w", err)
	}

	base := hg.NullHash
	if rec.Base != "" {
		base, err = hg.NodeHashFromHex(rec.Base)
		if err != nil {
			return hg.FilelogDeltaed{}, fmt.Errorf("invalid base: %w", err)
		}
	}

	p1, err := optionalNode(rec.P1)
	if err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("invalid p1: %w", err)
	}
	p2, err := optionalNode(rec.P2)
	if err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("invalid p2: %w", err)
	}
	linknode, err := hg.NodeHashFromHex(rec.Linknode)
	if err != nil {
		return hg.FilelogDeltaed{}, fmt.Errorf("invalid linknode: %w", err)
	}

	delta, err := parseDelta(rec)
	if err != nil {
		return hg.FilelogDeltaed{}, err
	}

	return hg.FilelogDeltaed{
		Path: path,
		Chunk: hg.CgDeltaChunk{
			Node:     node,
			Base:     base,
			Delta:    delta,
			P1:       p1,
			P2:       p2,
			Linknode: linknode,
		},
	}, nil
}

func parseDelta(rec recordJSON) (hg.Delta, error) {
	if rec.Delta == nil {
		content, err := base64.StdEncoding.DecodeString(rec.Fulltext)
		if err != nil {
			return hg.Delta{}, fmt.Errorf("could not decode fulltext: %w", err)
		}
		return hg.NewFullText(content), nil
	}

	fragments := make([]hg.Fragment, len(rec.Delta.Fragments))
	for i, f := range rec.Delta.Fragments {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return hg.Delta{}, fmt.Errorf("could not decode fragment %d content: %w", i, err)
		}
		fragments[i] = hg.Fragment{Start: f.Start, End: f.End, Content: content}
	}
	return hg.Delta{Fragments: fragments}, nil
}

func optionalNode(hex string) (hg.NodeHash, error) {
	if hex == "" {
		return hg.NullHash, nil
	}
	return hg.NodeHashFromHex(hex)
}
