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

import "github.com/masnagam/gofuse/internal/fusekernel"

// Header carries the fields of the kernel's 40-byte in-header that every
// Operation shares. Nodeid is exposed as InodeID for opcodes that operate
// on a single inode; it is not meaningful for all opcodes (e.g. INIT).
type Header struct {
	Opcode fusekernel.Opcode
	Unique uint64
	Nodeid InodeID
	Uid    uint32
	Gid    uint32
	Pid    uint32
}

// Operation is the tagged union over the kernel's opcode set. Every
// decoded request yields exactly one concrete Operation type; callers
// type-switch on it to find the handler to invoke. All payload borrows
// are valid only until the Request they came from has been replied to.
type Operation interface {
	// Header returns the shared request header.
	Header() Header
}

type opHeader struct {
	h Header
}

func (o opHeader) Header() Header { return o.h }

// LookupOp — look up a child by name within a parent directory.
type LookupOp struct {
	opHeader
	Name []byte
}

// ForgetOp — drop a previously issued inode reference count.
type ForgetOp struct {
	opHeader
	Nlookup uint64
}

// BatchForgetOp — drop reference counts for several inodes at once.
type BatchForgetOp struct {
	opHeader
	Entries []fusekernel.ForgetOne
}

// GetattrOp — fetch current attributes for an inode.
type GetattrOp struct {
	opHeader
	Handle    HandleID
	UseHandle bool
}

// SetattrOp — change one or more attributes of an inode.
type SetattrOp struct {
	opHeader
	Handle    HandleID
	UseHandle bool
	Size      *uint64
	Mode      *uint32
	Uid       *uint32
	Gid       *uint32
	Atime     *SetattrTime
	Mtime     *SetattrTime
}

// ReadlinkOp — read the target of a symlink.
type ReadlinkOp struct {
	opHeader
}

// SymlinkOp — create a symlink.
type SymlinkOp struct {
	opHeader
	Name   []byte
	Target []byte
}

// MknodOp — create a non-directory, non-symlink inode.
type MknodOp struct {
	opHeader
	Name  []byte
	Mode  uint32
	Rdev  uint32
	Umask uint32
}

// MkdirOp — create a directory.
type MkdirOp struct {
	opHeader
	Name  []byte
	Mode  uint32
	Umask uint32
}

// UnlinkOp — remove a non-directory child.
type UnlinkOp struct {
	opHeader
	Name []byte
}

// RmdirOp — remove an empty directory child.
type RmdirOp struct {
	opHeader
	Name []byte
}

// RenameOp — rename/move a child, no flags.
type RenameOp struct {
	opHeader
	NewDir InodeID
	OldName []byte
	NewName []byte
}

// RenameOp2 — rename/move a child with RENAME_NOREPLACE/RENAME_EXCHANGE
// flags passed through verbatim.
type RenameOp2 struct {
	opHeader
	NewDir  InodeID
	OldName []byte
	NewName []byte
	Flags   uint32
}

// LinkOp — create a hard link.
type LinkOp struct {
	opHeader
	OldNodeid InodeID
	NewName   []byte
}

// OpenOp — open a file inode.
type OpenOp struct {
	opHeader
	Flags uint32
}

// ReadOp — read a byte range from a file.
type ReadOp struct {
	opHeader
	Handle HandleID
	Offset int64
	Size   uint32
	Flags  uint32
}

// WriteOp — write a byte range to a file. Data is a zero-copy borrow of
// the tail of the kernel message.
type WriteOp struct {
	opHeader
	Handle HandleID
	Offset int64
	Flags  uint32
	Data   []byte
}

// StatfsOp — fetch filesystem-wide statistics.
type StatfsOp struct {
	opHeader
}

// ReleaseOp — release a previously opened file handle.
type ReleaseOp struct {
	opHeader
	Handle HandleID
	Flags  uint32
}

// FsyncOp — flush a file's contents to stable storage.
type FsyncOp struct {
	opHeader
	Handle      HandleID
	DataSyncOnly bool
}

// SetxattrOp — set an extended attribute.
type SetxattrOp struct {
	opHeader
	Name  []byte
	Value []byte
	Flags uint32
}

// GetxattrOp — read an extended attribute, or its size if Size==0.
type GetxattrOp struct {
	opHeader
	Name []byte
	Size uint32
}

// ListxattrOp — list extended attribute names, or their total size if
// Size==0.
type ListxattrOp struct {
	opHeader
	Size uint32
}

// RemovexattrOp — remove an extended attribute.
type RemovexattrOp struct {
	opHeader
	Name []byte
}

// FlushOp — handle a close(2) of a file descriptor over a handle.
type FlushOp struct {
	opHeader
	Handle    HandleID
	LockOwner uint64
}

// InitOp — the handshake request. Handled internally by Session; not
// normally surfaced to filesystem callbacks.
type InitOp struct {
	opHeader
	Kernel       fusekernel.Protocol
	MaxReadahead uint32
	Flags        fusekernel.InitFlags
}

// OpendirOp — open a directory inode.
type OpendirOp struct {
	opHeader
	Flags uint32
}

// ReaddirOp — read directory entries.
type ReaddirOp struct {
	opHeader
	Handle HandleID
	Offset DirOffset
	Size   int
}

// ReaddirPlusOp — read directory entries along with their attributes.
type ReaddirPlusOp struct {
	opHeader
	Handle HandleID
	Offset DirOffset
	Size   int
}

// ReleasedirOp — release a previously opened directory handle.
type ReleasedirOp struct {
	opHeader
	Handle HandleID
	Flags  uint32
}

// FsyncdirOp — flush a directory's contents to stable storage.
type FsyncdirOp struct {
	opHeader
	Handle       HandleID
	DataSyncOnly bool
}

// GetlkOp — test whether a byte-range lock could be taken.
type GetlkOp struct {
	opHeader
	Handle HandleID
	Owner  uint64
	Lock   fusekernel.FileLock
}

// SetlkOp — set or clear a byte-range lock, non-blocking.
type SetlkOp struct {
	opHeader
	Handle HandleID
	Owner  uint64
	Lock   fusekernel.FileLock
	Flock  bool
}

// SetlkwOp — set or clear a byte-range lock, blocking.
type SetlkwOp struct {
	opHeader
	Handle HandleID
	Owner  uint64
	Lock   fusekernel.FileLock
	Flock  bool
}

// AccessOp — check permission bits (access(2)).
type AccessOp struct {
	opHeader
	Mask uint32
}

// CreateOp — atomically create and open a file.
type CreateOp struct {
	opHeader
	Name  []byte
	Flags uint32
	Mode  uint32
	Umask uint32
}

// InterruptOp — ask the library to cancel a previously dispatched request.
// Carries no reply; the session handles it inline and, if the target is
// still in flight, cancels its Request context.
type InterruptOp struct {
	opHeader
	TargetUnique uint64
}

// BmapOp — map a logical file block to a physical device block.
type BmapOp struct {
	opHeader
	Block     uint64
	Blocksize uint32
}

// DestroyOp — the kernel is tearing the session down cleanly.
type DestroyOp struct {
	opHeader
}

// IoctlOp — forward an ioctl(2) call made against an open file.
type IoctlOp struct {
	opHeader
	Handle  HandleID
	Cmd     uint32
	Arg     uint64
	Flags   uint32
	InData  []byte
	OutSize uint32
}

// PollOp — ask whether a file is ready for I/O, optionally registering
// for a wakeup notification.
type PollOp struct {
	opHeader
	Handle HandleID
	Kh     uint64
	Flags  uint32
}

// NotifyReplyOp — the kernel's answer to a RETRIEVE notification. Carries
// no reply of its own; the session uses it to resolve the notification
// registry entry for Unique.
type NotifyReplyOp struct {
	opHeader
	RetrieveUnique uint64
	Offset         uint64
	Data           []byte
}

// FallocateOp — preallocate or punch a hole in a file.
type FallocateOp struct {
	opHeader
	Handle HandleID
	Offset uint64
	Length uint64
	Mode   uint32
}

// CopyFileRangeOp — copy a byte range between two open files in-kernel.
type CopyFileRangeOp struct {
	opHeader
	HandleIn   HandleID
	OffsetIn   uint64
	NodeidOut  InodeID
	HandleOut  HandleID
	OffsetOut  uint64
	Len        uint64
	Flags      uint64
}

// UnknownOp is returned by Decode for any opcode this package does not
// recognize. The session answers it with ENOSYS without surfacing it to
// the filesystem.
type UnknownOp struct {
	opHeader
	RawOpcode uint32
}
