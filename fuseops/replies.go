// Copyright 2024 The gofuse Authors.
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

package fuseops

import (
	"time"
	"unsafe"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func splitTime(t time.Time) (sec uint64, nsec uint32) {
	return uint64(t.Unix()), uint32(t.Nanosecond())
}

// Attr is the filesystem-facing view of an inode's attributes; reply
// builders translate it into the wire fusekernel.Attr layout.
type Attr struct {
	Ino       InodeID
	Size      uint64
	Blocks    uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Mode      uint32
	// Nlink defaults to 1 on the wire when left zero.
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
}

func toWireAttr(a *Attr) fusekernel.Attr {
	atSec, atNsec := splitTime(a.Atime)
	mtSec, mtNsec := splitTime(a.Mtime)
	ctSec, ctNsec := splitTime(a.Ctime)
	nlink := a.Nlink
	if nlink == 0 {
		nlink = 1
	}
	return fusekernel.Attr{
		Ino:       uint64(a.Ino),
		Size:      a.Size,
		Blocks:    a.Blocks,
		Atime:     atSec,
		Mtime:     mtSec,
		Ctime:     ctSec,
		Atimensec: atNsec,
		Mtimensec: mtNsec,
		Ctimensec: ctNsec,
		Mode:      a.Mode,
		Nlink:     nlink,
		Uid:       a.Uid,
		Gid:       a.Gid,
		Rdev:      a.Rdev,
		Blksize:   a.Blksize,
	}
}

// EntryReply is the reply to LOOKUP, MKDIR, SYMLINK, MKNOD, and LINK.
type EntryReply struct {
	Child      InodeID
	Generation Generation
	Attr       Attr
	// AttrTTL and EntryTTL bound how long the kernel may cache the
	// returned attributes and name-to-inode mapping respectively.
	AttrTTL  time.Duration
	EntryTTL time.Duration

	wire fusekernel.EntryOut
}

var _ atomicbytes.AtomicBytes = (*EntryReply)(nil)

func (r *EntryReply) build() *fusekernel.EntryOut {
	r.wire = fusekernel.EntryOut{
		Nodeid:     uint64(r.Child),
		Generation: uint64(r.Generation),
		EntryValid: uint64(r.EntryTTL / time.Second),
		AttrValid:  uint64(r.AttrTTL / time.Second),
		Attr:       toWireAttr(&r.Attr),
	}
	r.wire.EntryValidNsec = uint32(r.EntryTTL % time.Second)
	r.wire.AttrValidNsec = uint32(r.AttrTTL % time.Second)
	return &r.wire
}

// EntryOutBytes exposes the encoded fusekernel.EntryOut payload directly,
// for callers (such as the READDIRPLUS builder) that must splice it into a
// larger, differently-shaped record rather than write it as a standalone
// reply.
func (r *EntryReply) EntryOutBytes() []byte {
	b := r.build()
	return unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b))
}

func (r *EntryReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *EntryReply) Count() int { return 1 }
func (r *EntryReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// AttrReply is the reply to GETATTR and SETATTR.
type AttrReply struct {
	Attr    Attr
	AttrTTL time.Duration

	wire fusekernel.AttrOut
}

var _ atomicbytes.AtomicBytes = (*AttrReply)(nil)

func (r *AttrReply) build() *fusekernel.AttrOut {
	r.wire = fusekernel.AttrOut{
		AttrValid: uint64(r.AttrTTL / time.Second),
		Attr:      toWireAttr(&r.Attr),
	}
	r.wire.AttrValidNsec = uint32(r.AttrTTL % time.Second)
	return &r.wire
}

func (r *AttrReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *AttrReply) Count() int { return 1 }
func (r *AttrReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// OpenReply is the reply to OPEN and OPENDIR.
type OpenReply struct {
	Handle    HandleID
	KeepCache bool
	DirectIO  bool

	wire fusekernel.OpenOut
}

var _ atomicbytes.AtomicBytes = (*OpenReply)(nil)

func (r *OpenReply) build() *fusekernel.OpenOut {
	var flags uint32
	if r.KeepCache {
		flags |= fusekernel.FopenKeepCache
	}
	if r.DirectIO {
		flags |= fusekernel.FopenDirectIO
	}
	r.wire = fusekernel.OpenOut{Fh: uint64(r.Handle), OpenFlags: flags}
	return &r.wire
}

func (r *OpenReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *OpenReply) Count() int { return 1 }
func (r *OpenReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// CreateReply combines an EntryReply and an OpenReply, matching the
// kernel's two-struct CREATE reply payload.
type CreateReply struct {
	Entry EntryReply
	Open  OpenReply

	seq atomicbytes.Seq
}

var _ atomicbytes.AtomicBytes = (*CreateReply)(nil)

func (r *CreateReply) build() atomicbytes.Seq {
	r.seq = atomicbytes.Seq{&r.Entry, &r.Open}
	return r.seq
}

func (r *CreateReply) Size() int                 { return r.build().Size() }
func (r *CreateReply) Count() int                { return r.build().Count() }
func (r *CreateReply) Fill(sink atomicbytes.Sink) { r.build().Fill(sink) }

// WriteReply is the reply to WRITE.
type WriteReply struct {
	// Written is the number of bytes the filesystem actually wrote.
	Written uint32

	wire fusekernel.WriteOut
}

var _ atomicbytes.AtomicBytes = (*WriteReply)(nil)

func (r *WriteReply) build() *fusekernel.WriteOut {
	r.wire = fusekernel.WriteOut{Size: r.Written}
	return &r.wire
}

func (r *WriteReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *WriteReply) Count() int { return 1 }
func (r *WriteReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// StatfsReply is the reply to STATFS.
type StatfsReply struct {
	Blocks, Bfree, Bavail uint64
	Files, Ffree          uint64
	Bsize, NameLen, Frsize uint32

	wire fusekernel.StatfsOut
}

var _ atomicbytes.AtomicBytes = (*StatfsReply)(nil)

func (r *StatfsReply) build() *fusekernel.StatfsOut {
	r.wire = fusekernel.StatfsOut{
		Blocks: r.Blocks, Bfree: r.Bfree, Bavail: r.Bavail,
		Files: r.Files, Ffree: r.Ffree,
		Bsize: r.Bsize, NameLen: r.NameLen, Frsize: r.Frsize,
	}
	return &r.wire
}

func (r *StatfsReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *StatfsReply) Count() int { return 1 }
func (r *StatfsReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// XattrDataReply carries the value of a GETXATTR or the name list of a
// LISTXATTR when the request asked for data (Size != 0). Data is copied
// into the reply by the caller, not borrowed, since it typically comes
// from a filesystem-owned buffer.
type XattrDataReply struct {
	Data atomicbytes.Bytes
}

var _ atomicbytes.AtomicBytes = (*XattrDataReply)(nil)

func (r *XattrDataReply) Size() int                 { return r.Data.Size() }
func (r *XattrDataReply) Count() int                { return r.Data.Count() }
func (r *XattrDataReply) Fill(sink atomicbytes.Sink) { r.Data.Fill(sink) }

// XattrSizeReply answers a GETXATTR/LISTXATTR request that asked only for
// the size of the value (Size == 0 in the request).
type XattrSizeReply struct {
	// ValueSize is the size the filesystem reports the attribute (or the
	// full name list) would occupy.
	ValueSize uint32

	wire fusekernel.GetxattrOut
}

var _ atomicbytes.AtomicBytes = (*XattrSizeReply)(nil)

func (r *XattrSizeReply) build() *fusekernel.GetxattrOut {
	r.wire = fusekernel.GetxattrOut{Size: r.ValueSize}
	return &r.wire
}

func (r *XattrSizeReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *XattrSizeReply) Count() int { return 1 }
func (r *XattrSizeReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// LkReply is the reply to GETLK.
type LkReply struct {
	Lock fusekernel.FileLock

	wire fusekernel.LkOut
}

var _ atomicbytes.AtomicBytes = (*LkReply)(nil)

func (r *LkReply) build() *fusekernel.LkOut {
	r.wire = fusekernel.LkOut{Lk: r.Lock}
	return &r.wire
}

func (r *LkReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *LkReply) Count() int { return 1 }
func (r *LkReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// BmapReply is the reply to BMAP.
type BmapReply struct {
	Block uint64

	wire fusekernel.BmapOut
}

var _ atomicbytes.AtomicBytes = (*BmapReply)(nil)

func (r *BmapReply) build() *fusekernel.BmapOut {
	r.wire = fusekernel.BmapOut{Block: r.Block}
	return &r.wire
}

func (r *BmapReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *BmapReply) Count() int { return 1 }
func (r *BmapReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// IoctlReply is the reply to IOCTL for the common non-iovec-retry case.
type IoctlReply struct {
	Result int32
	Out    atomicbytes.Bytes

	wire fusekernel.IoctlOut
	seq  atomicbytes.Seq
}

var _ atomicbytes.AtomicBytes = (*IoctlReply)(nil)

func (r *IoctlReply) build() atomicbytes.Seq {
	r.wire = fusekernel.IoctlOut{Result: r.Result}
	r.seq = atomicbytes.Seq{
		atomicbytes.Bytes(unsafe.Slice((*byte)(unsafe.Pointer(&r.wire)), unsafe.Sizeof(r.wire))),
		r.Out,
	}
	return r.seq
}

func (r *IoctlReply) Size() int                 { return r.build().Size() }
func (r *IoctlReply) Count() int                { return r.build().Count() }
func (r *IoctlReply) Fill(sink atomicbytes.Sink) { r.build().Fill(sink) }

// PollReply is the reply to POLL.
type PollReply struct {
	Revents uint32

	wire fusekernel.PollOut
}

var _ atomicbytes.AtomicBytes = (*PollReply)(nil)

func (r *PollReply) build() *fusekernel.PollOut {
	r.wire = fusekernel.PollOut{Revents: r.Revents}
	return &r.wire
}

func (r *PollReply) Size() int  { b := r.build(); return int(unsafe.Sizeof(*b)) }
func (r *PollReply) Count() int { return 1 }
func (r *PollReply) Fill(sink atomicbytes.Sink) {
	b := r.build()
	sink.Put(unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b)))
}

// ReadReply wraps file data returned from a READ or READLINK request.
// Data is typically a zero-copy borrow from the filesystem's own cache;
// the reply does not take ownership of it.
type ReadReply struct {
	Data atomicbytes.Bytes
}

var _ atomicbytes.AtomicBytes = (*ReadReply)(nil)

func (r *ReadReply) Size() int                 { return r.Data.Size() }
func (r *ReadReply) Count() int                { return r.Data.Count() }
func (r *ReadReply) Fill(sink atomicbytes.Sink) { r.Data.Fill(sink) }
