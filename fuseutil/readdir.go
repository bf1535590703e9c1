// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fuseutil provides the filesystem-facing callback interface and a
// handful of helpers (directory entry encoding, a default ENOSYS
// implementation) that sit above fuseops's wire-level decode/reply types.
package fuseutil

import (
	"time"
	"unsafe"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

// DirentEntry is one entry a filesystem reports back from Readdir.
type DirentEntry struct {
	Inode  fuseops.InodeID
	Offset fuseops.DirOffset
	Name   string
	Type   fuseops.DirentType
}

// writeDirent encodes one directory entry in the kernel's fuse_dirent wire
// format into buf, returning the number of bytes written including name
// and padding, or zero if the entry does not fit.
func writeDirent(buf []byte, d DirentEntry) int {
	var padLen int
	if len(d.Name)%fusekernel.DirentAlignment != 0 {
		padLen = fusekernel.DirentAlignment - (len(d.Name) % fusekernel.DirentAlignment)
	}

	total := fusekernel.DirentSize + len(d.Name) + padLen
	if total > len(buf) {
		return 0
	}

	de := fusekernel.Dirent{
		Ino:     uint64(d.Inode),
		Off:     uint64(d.Offset),
		Namelen: uint32(len(d.Name)),
		Type:    uint32(d.Type),
	}

	n := copy(buf, (*[fusekernel.DirentSize]byte)(unsafe.Pointer(&de))[:])
	n += copy(buf[n:], d.Name)
	if padLen != 0 {
		var padding [fusekernel.DirentAlignment]byte
		n += copy(buf[n:], padding[:padLen])
	}
	return n
}

// DirentListBuilder accumulates directory entries into a fixed-size
// buffer, stopping as soon as an entry would overflow the budget the
// kernel gave in the READDIR request. This mirrors the kernel's own
// truncate-and-resume-from-offset readdir protocol: a short result is not
// an error, it is a cue to call Readdir again with the last-returned
// Offset as the new starting cookie.
type DirentListBuilder struct {
	buf []byte
	n   int
}

// NewDirentListBuilder allocates a builder with room for up to size bytes,
// matching the Size the kernel requested in the READDIR message.
func NewDirentListBuilder(size int) *DirentListBuilder {
	return &DirentListBuilder{buf: make([]byte, size)}
}

// Add appends one entry, returning false (and leaving the builder
// unmodified) if it does not fit in the remaining budget.
func (b *DirentListBuilder) Add(d DirentEntry) bool {
	written := writeDirent(b.buf[b.n:], d)
	if written == 0 {
		return false
	}
	b.n += written
	return true
}

// Bytes returns the encoded entries accumulated so far as an AtomicBytes
// reply suitable for a ReaddirOp.
func (b *DirentListBuilder) Bytes() atomicbytes.AtomicBytes {
	return atomicbytes.Bytes(b.buf[:b.n])
}

// Len reports how many bytes have been written so far.
func (b *DirentListBuilder) Len() int { return b.n }

// DirentPlusEntry is one entry a filesystem reports back from
// ReaddirPlus: the usual directory entry plus the child's attributes, so
// the kernel can populate its dentry and inode caches in the same round
// trip.
type DirentPlusEntry struct {
	Dirent DirentEntry
	Entry  fuseops.Attr
	Child  fuseops.InodeID
	Generation fuseops.Generation
	AttrTTL  time.Duration
	EntryTTL time.Duration
}

var direntPlusFixedSize = int(unsafe.Sizeof(fusekernel.DirentPlus{}))

func writeDirentPlus(buf []byte, d DirentPlusEntry) int {
	name := d.Dirent.Name
	var padLen int
	if len(name)%fusekernel.DirentAlignment != 0 {
		padLen = fusekernel.DirentAlignment - (len(name) % fusekernel.DirentAlignment)
	}

	total := direntPlusFixedSize + len(name) + padLen
	if total > len(buf) {
		return 0
	}

	er := fuseops.EntryReply{
		Child:      d.Child,
		Generation: d.Generation,
		Attr:       d.Entry,
		AttrTTL:    d.AttrTTL,
		EntryTTL:   d.EntryTTL,
	}

	dirent := fusekernel.Dirent{
		Ino:     uint64(d.Dirent.Inode),
		Off:     uint64(d.Dirent.Offset),
		Namelen: uint32(len(name)),
		Type:    uint32(d.Dirent.Type),
	}

	n := copy(buf, er.EntryOutBytes())
	n += copy(buf[n:], (*[fusekernel.DirentSize]byte)(unsafe.Pointer(&dirent))[:])
	n += copy(buf[n:], name)
	if padLen != 0 {
		var padding [fusekernel.DirentAlignment]byte
		n += copy(buf[n:], padding[:padLen])
	}
	return n
}

// DirentPlusListBuilder is the READDIRPLUS counterpart of
// DirentListBuilder.
type DirentPlusListBuilder struct {
	buf []byte
	n   int
}

// NewDirentPlusListBuilder allocates a builder with room for up to size
// bytes.
func NewDirentPlusListBuilder(size int) *DirentPlusListBuilder {
	return &DirentPlusListBuilder{buf: make([]byte, size)}
}

// Add appends one entry, returning false if it does not fit.
func (b *DirentPlusListBuilder) Add(d DirentPlusEntry) bool {
	written := writeDirentPlus(b.buf[b.n:], d)
	if written == 0 {
		return false
	}
	b.n += written
	return true
}

// Bytes returns the encoded entries accumulated so far.
func (b *DirentPlusListBuilder) Bytes() atomicbytes.AtomicBytes {
	return atomicbytes.Bytes(b.buf[:b.n])
}

// Len reports how many bytes have been written so far.
func (b *DirentPlusListBuilder) Len() int { return b.n }
