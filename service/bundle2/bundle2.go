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
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic is the bundle2 stream header. Mercurial hangs when asked to read
// a compressed bundle over the wire (upstream bug 5646), so this server
// only ever emits the uncompressed variant.
const Magic = "HG20"

// Part is one bundle2 part: a name, a set of string parameters, and a
// byte payload. Parts are framed as a sequence of length-prefixed
// chunks terminated by a zero-length chunk, per the bundle2 spec.
type Part struct {
	Name    string
	Params  map[string]string
	Payload []byte
}

// Builder accumulates parts and renders the final envelope.
type Builder struct {
	parts  []Part
	nextID uint32
}

// NewBuilder creates an empty, uncompressed bundle2 envelope builder.
func NewBuilder() *Builder {
	return &Builder{nextID: 1}
}

// AddPart appends a part to the envelope, in emission order.
func (b *Builder) AddPart(p Part) {
	b.parts = append(b.parts, p)
}

// Build renders the full envelope: magic header, empty stream params,
// each part's framing, and a terminating zero part header size.
func (b *Builder) Build() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(Magic)
	writeUint32(&buf, 0) // stream-level parameter block length: none.

	for _, p := range b.parts {
		if err := writePart(&buf, p, b.nextID); err != nil {
			return nil, fmt.Errorf("could not write part %q: %w", p.Name, err)
		}
		b.nextID++
	}

	// End of stream: a part header of size zero.
	writeUint32(&buf, 0)

	return buf.Bytes(), nil
}

func writePart(out *bytes.Buffer, p Part, id uint32) error {
	if len(p.Name) == 0 || len(p.Name) > 255 {
		return fmt.Errorf("part name length out of range: %d", len(p.Name))
	}

	// The part header is assembled separately so it can be prefixed with
	// its own size.
	buf := new(bytes.Buffer)

	buf.WriteByte(byte(len(p.Name)))
	buf.WriteString(p.Name)
	writeUint32(buf, id)

	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}

	buf.WriteByte(byte(len(keys))) // mandatory param count
	buf.WriteByte(0)               // advisory param count

	for _, k := range keys {
		v := p.Params[k]
		if len(k) > 255 || len(v) > 255 {
			return fmt.Errorf("param %q exceeds 255 bytes", k)
		}
		buf.WriteByte(byte(len(k)))
		buf.WriteByte(byte(len(v)))
	}
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(p.Params[k])
	}

	writeUint32(out, uint32(buf.Len()))
	out.Write(buf.Bytes())

	return writeChunks(out, p.Payload)
}

// writeChunks splits payload into a single chunk (real Mercurial streams
// large payloads across multiple bounded chunks; this server's payloads
// are always built fully in memory first) followed by the terminating
// zero-length chunk.
func writeChunks(buf *bytes.Buffer, payload []byte) error {
	if len(payload) > 0 {
		writeUint32(buf, uint32(len(payload)))
		buf.Write(payload)
	}
	writeUint32(buf, 0)
	return nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
