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

package fusekernel

// InHeader is the 40-byte prefix of every request the kernel sends.
type InHeader struct {
	Len     uint32
	Opcode  uint32
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// OutHeader is the 16-byte prefix of every reply sent to the kernel.
type OutHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

// InitIn is the payload of an INIT request.
type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

// InitOut is the payload of an INIT reply.
type InitOut struct {
	Major               uint32
	Minor               uint32
	MaxReadahead        uint32
	Flags               uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	MaxWrite            uint32
	TimeGran            uint32
	MaxPages            uint16
	Padding             uint16
	Unused              [8]uint32
}

// Attr mirrors struct fuse_attr.
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32
}

// EntryOut is the payload of LOOKUP/MKDIR/SYMLINK/MKNOD/LINK replies.
type EntryOut struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

// AttrOut is the payload of GETATTR/SETATTR replies.
type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Padding       uint32
	Attr          Attr
}

// OpenOut is the payload of OPEN/OPENDIR/CREATE replies.
type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

// CreateOut combines EntryOut and OpenOut for CREATE replies.
type CreateOut struct {
	Entry EntryOut
	Open  OpenOut
}

// GetattrIn is the payload of a GETATTR request.
type GetattrIn struct {
	GetattrFlags uint32
	Padding      uint32
	Fh           uint64
}

const GetattrFh = 1 << 0

// SetattrIn is the payload of a SETATTR request.
type SetattrIn struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     uint64
	Mtime     uint64
	Unused2   uint64
	Atimensec uint32
	Mtimensec uint32
	Unused3   uint32
	Mode      uint32
	Unused4   uint32
	Uid       uint32
	Gid       uint32
	Unused5   uint32
}

// MknodIn is the payload of a MKNOD request.
type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

// MkdirIn is the payload of a MKDIR request.
type MkdirIn struct {
	Mode  uint32
	Umask uint32
}

// RenameIn is the payload of a RENAME request.
type RenameIn struct {
	Newdir uint64
}

// Rename2In is the payload of a RENAME2 request.
type Rename2In struct {
	Newdir  uint64
	Flags   uint32
	Padding uint32
}

// LinkIn is the payload of a LINK request.
type LinkIn struct {
	Oldnodeid uint64
}

// OpenIn is the payload of OPEN/OPENDIR requests.
type OpenIn struct {
	Flags  uint32
	Unused uint32
}

// ReadIn is the payload of READ/READDIR/READDIRPLUS requests.
type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

// WriteIn is the fixed-size prefix of a WRITE request; the trailing Size
// bytes of request data follow it in the kernel message.
type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
}

// WriteOut is the payload of a WRITE reply.
type WriteOut struct {
	Size    uint32
	Padding uint32
}

// StatfsOut is the payload of a STATFS reply.
type StatfsOut struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	NameLen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

// ReleaseIn is the payload of RELEASE/RELEASEDIR requests.
type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

// FsyncIn is the payload of FSYNC/FSYNCDIR requests.
type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

// FsyncFdatasync, when set in FsyncIn.FsyncFlags, requests fdatasync(2)
// semantics. The core accepts this bit on the wire but does not require
// callers to distinguish it from a plain fsync.
const FsyncFdatasync = 1 << 0

// SetxattrIn is the fixed-size prefix of a SETXATTR request; the name and
// value follow it in the kernel message.
type SetxattrIn struct {
	Size  uint32
	Flags uint32
}

// GetxattrIn is the payload of a GETXATTR/LISTXATTR request.
type GetxattrIn struct {
	Size    uint32
	Padding uint32
}

// GetxattrOut is the payload of a GETXATTR/LISTXATTR reply when Size==0
// (the caller is asking how large a buffer it needs).
type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

// AccessIn is the payload of an ACCESS request.
type AccessIn struct {
	Mask    uint32
	Padding uint32
}

// CreateIn is the fixed-size prefix of a CREATE request; the name follows.
type CreateIn struct {
	Flags   uint32
	Mode    uint32
	Umask   uint32
	Padding uint32
}

// InterruptIn is the payload of an INTERRUPT request.
type InterruptIn struct {
	Unique uint64
}

// BmapIn is the payload of a BMAP request.
type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

// BmapOut is the payload of a BMAP reply.
type BmapOut struct {
	Block uint64
}

// IoctlIn is the fixed-size prefix of an IOCTL request.
type IoctlIn struct {
	Fh      uint64
	Flags   uint32
	Cmd     uint32
	Arg     uint64
	InSize  uint32
	OutSize uint32
}

// IoctlOut is the fixed-size prefix of an IOCTL reply.
type IoctlOut struct {
	Result int32
	Flags  uint32
	InIovs uint32
	OutIovs uint32
}

// PollIn is the payload of a POLL request.
type PollIn struct {
	Fh      uint64
	Kh      uint64
	Flags   uint32
	Padding uint32
}

// PollOut is the payload of a POLL reply.
type PollOut struct {
	Revents uint32
	Padding uint32
}

// NotifyPollWakeupOut is the payload of a library-initiated POLL wakeup
// notification.
type NotifyPollWakeupOut struct {
	Kh uint64
}

// NotifyInvalInodeOut is the payload of an INVAL_INODE notification.
type NotifyInvalInodeOut struct {
	Ino    uint64
	Off    int64
	Length int64
}

// NotifyInvalEntryOut is the fixed-size prefix of an INVAL_ENTRY
// notification; the entry name follows.
type NotifyInvalEntryOut struct {
	Parent  uint64
	Namelen uint32
	Padding uint32
}

// NotifyDeleteOut is the fixed-size prefix of a DELETE notification; the
// entry name follows.
type NotifyDeleteOut struct {
	Parent  uint64
	Child   uint64
	Namelen uint32
	Padding uint32
}

// NotifyStoreOut is the fixed-size prefix of a STORE notification; the
// stored data follows.
type NotifyStoreOut struct {
	Nodeid  uint64
	Offset  uint64
	Size    uint32
	Padding uint32
}

// NotifyRetrieveOut is the payload the library sends when asking the
// kernel to read cached data back via a RETRIEVE notification.
type NotifyRetrieveOut struct {
	NotifyUnique uint64
	Nodeid       uint64
	Offset       uint64
	Size         uint32
	Padding      uint32
}

// NotifyRetrieveIn is the fixed-size prefix of the kernel's NOTIFY_REPLY
// answer to a RETRIEVE notification; the retrieved data follows.
type NotifyRetrieveIn struct {
	Dummy1  uint64
	Offset  uint64
	Size    uint32
	Dummy2  uint32
	Dummy3  uint64
	Dummy4  uint64
}

// FallocateIn is the payload of a FALLOCATE request.
type FallocateIn struct {
	Fh      uint64
	Offset  uint64
	Length  uint64
	Mode    uint32
	Padding uint32
}

// CopyFileRangeIn is the payload of a COPY_FILE_RANGE request.
type CopyFileRangeIn struct {
	FhIn      uint64
	OffIn     uint64
	NodeidOut uint64
	FhOut     uint64
	OffOut    uint64
	Len       uint64
	Flags     uint64
}

// FileLock mirrors struct fuse_file_lock.
type FileLock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

// LkIn is the payload of GETLK/SETLK/SETLKW requests.
type LkIn struct {
	Fh      uint64
	Owner   uint64
	Lk      FileLock
	LkFlags uint32
	Padding uint32
}

const LkFlock = 1 << 0

// LkOut is the payload of a GETLK reply.
type LkOut struct {
	Lk FileLock
}

// Dirent is one on-wire directory entry record, 8-byte aligned including
// its trailing, zero-padded name.
type Dirent struct {
	Ino     uint64
	Off     uint64
	Namelen uint32
	Type    uint32
}

// DirentAlignment is the alignment boundary (in bytes) that every dirent
// record, including its name, must be padded to.
const DirentAlignment = 8

// DirentSize is the fixed-size portion of a Dirent record, excluding name.
const DirentSize = 24

// DirentPlus is one on-wire READDIRPLUS entry: a full EntryOut immediately
// followed by the usual Dirent header and padded name.
type DirentPlus struct {
	Entry  EntryOut
	Dirent Dirent
}

// DirentPlusSize is the fixed-size portion of a DirentPlus record,
// excluding name.
const DirentPlusSize = 152 // sizeof(EntryOut) + DirentSize

// ForgetOne is one element of a BATCH_FORGET array.
type ForgetOne struct {
	Nodeid  uint64
	Nlookup uint64
}

// BatchForgetIn is the fixed-size prefix of a BATCH_FORGET request; Count
// ForgetOne records follow it in the kernel message.
type BatchForgetIn struct {
	Count   uint32
	Padding uint32
}

// ForgetIn is the payload of a FORGET request.
type ForgetIn struct {
	Nlookup uint64
}
