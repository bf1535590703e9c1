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

// Package fusekernel mirrors the on-wire structures and constants of
// linux/fuse.h. Field names and layout must match the kernel exactly;
// nothing here may be reordered or padded differently than the C struct it
// stands in for.
package fusekernel

// Opcode identifies the kind of a kernel request.
type Opcode uint32

// The opcode values are fixed by the kernel ABI and must never change.
const (
	OpLookup      Opcode = 1
	OpForget      Opcode = 2 // no reply
	OpGetattr     Opcode = 3
	OpSetattr     Opcode = 4
	OpReadlink    Opcode = 5
	OpSymlink     Opcode = 6
	OpMknod       Opcode = 8
	OpMkdir       Opcode = 9
	OpUnlink      Opcode = 10
	OpRmdir       Opcode = 11
	OpRename      Opcode = 12
	OpLink        Opcode = 13
	OpOpen        Opcode = 14
	OpRead        Opcode = 15
	OpWrite       Opcode = 16
	OpStatfs      Opcode = 17
	OpRelease     Opcode = 18
	OpFsync       Opcode = 20
	OpSetxattr    Opcode = 21
	OpGetxattr    Opcode = 22
	OpListxattr   Opcode = 23
	OpRemovexattr Opcode = 24
	OpFlush       Opcode = 25
	OpInit        Opcode = 26
	OpOpendir     Opcode = 27
	OpReaddir     Opcode = 28
	OpReleasedir  Opcode = 29
	OpFsyncdir    Opcode = 30
	OpGetlk       Opcode = 31
	OpSetlk       Opcode = 32
	OpSetlkw      Opcode = 33
	OpAccess      Opcode = 34
	OpCreate      Opcode = 35
	OpInterrupt   Opcode = 36
	OpBmap        Opcode = 37
	OpDestroy     Opcode = 38
	OpIoctl       Opcode = 39
	OpPoll        Opcode = 40
	OpNotifyReply Opcode = 41
	OpBatchForget Opcode = 42
	OpFallocate   Opcode = 43
	OpReaddirplus Opcode = 44
	OpRename2     Opcode = 45
	OpCopyFileRange Opcode = 47
)

var opcodeNames = map[Opcode]string{
	OpLookup: "LOOKUP", OpForget: "FORGET", OpGetattr: "GETATTR",
	OpSetattr: "SETATTR", OpReadlink: "READLINK", OpSymlink: "SYMLINK",
	OpMknod: "MKNOD", OpMkdir: "MKDIR", OpUnlink: "UNLINK", OpRmdir: "RMDIR",
	OpRename: "RENAME", OpLink: "LINK", OpOpen: "OPEN", OpRead: "READ",
	OpWrite: "WRITE", OpStatfs: "STATFS", OpRelease: "RELEASE",
	OpFsync: "FSYNC", OpSetxattr: "SETXATTR", OpGetxattr: "GETXATTR",
	OpListxattr: "LISTXATTR", OpRemovexattr: "REMOVEXATTR", OpFlush: "FLUSH",
	OpInit: "INIT", OpOpendir: "OPENDIR", OpReaddir: "READDIR",
	OpReleasedir: "RELEASEDIR", OpFsyncdir: "FSYNCDIR", OpGetlk: "GETLK",
	OpSetlk: "SETLK", OpSetlkw: "SETLKW", OpAccess: "ACCESS",
	OpCreate: "CREATE", OpInterrupt: "INTERRUPT", OpBmap: "BMAP",
	OpDestroy: "DESTROY", OpIoctl: "IOCTL", OpPoll: "POLL",
	OpNotifyReply: "NOTIFY_REPLY", OpBatchForget: "BATCH_FORGET",
	OpFallocate: "FALLOCATE", OpReaddirplus: "READDIRPLUS",
	OpRename2: "RENAME2", OpCopyFileRange: "COPY_FILE_RANGE",
}

// String implements fmt.Stringer for debug logging.
func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "UNKNOWN"
}

// NotifyCode identifies an asynchronous library-to-kernel notification.
// The values are the kernel's positive codes; a notification frame carries
// the negated code in OutHeader.Error.
type NotifyCode int32

const (
	NotifyPoll        NotifyCode = 1
	NotifyInvalInode  NotifyCode = 2
	NotifyInvalEntry  NotifyCode = 3
	NotifyStore       NotifyCode = 4
	NotifyRetrieve    NotifyCode = 5
	NotifyDelete      NotifyCode = 6
)

// RootID is the node ID of the filesystem root.
const RootID = 1

// InitFlags are the capability bits negotiated during INIT, intersected
// between what the kernel offers and what KernelConfig enables.
type InitFlags uint32

const (
	InitAsyncRead         InitFlags = 1 << 0
	InitPosixLocks        InitFlags = 1 << 1
	InitFileOps           InitFlags = 1 << 2
	InitAtomicOTrunc      InitFlags = 1 << 3
	InitExportSupport     InitFlags = 1 << 4
	InitBigWrites         InitFlags = 1 << 5
	InitDontMask          InitFlags = 1 << 6
	InitSpliceWrite       InitFlags = 1 << 7
	InitSpliceMove        InitFlags = 1 << 8
	InitSpliceRead        InitFlags = 1 << 9
	InitFlockLocks        InitFlags = 1 << 10
	InitHasIoctlDir       InitFlags = 1 << 11
	InitAutoInvalData     InitFlags = 1 << 12
	InitDoReaddirplus     InitFlags = 1 << 13
	InitReaddirplusAuto   InitFlags = 1 << 14
	InitAsyncDio          InitFlags = 1 << 15
	InitWritebackCache    InitFlags = 1 << 16
	InitNoOpenSupport     InitFlags = 1 << 17
	InitParallelDirops    InitFlags = 1 << 18
	InitHandleKillpriv    InitFlags = 1 << 19
	InitPosixACL          InitFlags = 1 << 20
	InitAbortError        InitFlags = 1 << 21
	InitMaxPages          InitFlags = 1 << 22
	InitCacheSymlinks     InitFlags = 1 << 23
	InitNoOpendirSupport  InitFlags = 1 << 24
	InitExplicitInvalData InitFlags = 1 << 25
)

// ProtoVersionMinMajor/Minor is the oldest kernel protocol this library
// will complete a handshake with (spec requires major=7, minor>=23).
const (
	ProtoVersionMinMajor = 7
	ProtoVersionMinMinor = 23

	ProtoVersionMaxMajor = 7
	ProtoVersionMaxMinor = 38
)

// Protocol is a (major, minor) FUSE wire protocol version.
type Protocol struct {
	Major uint32
	Minor uint32
}

// LT reports whether p is strictly older than other.
func (p Protocol) LT(other Protocol) bool {
	if p.Major != other.Major {
		return p.Major < other.Major
	}
	return p.Minor < other.Minor
}

// MinReadBuffer is the kernel-mandated minimum /dev/fuse read buffer size.
const MinReadBuffer = 8192

// FATTR_* bitmask values for SetattrIn.Valid.
const (
	FattrMode      = 1 << 0
	FattrUID       = 1 << 1
	FattrGID       = 1 << 2
	FattrSize      = 1 << 3
	FattrAtime     = 1 << 4
	FattrMtime     = 1 << 5
	FattrFh        = 1 << 6
	FattrAtimeNow  = 1 << 7
	FattrMtimeNow  = 1 << 8
	FattrLockOwner = 1 << 9
)

// FOPEN_* flags returned in OpenOut.OpenFlags.
const (
	FopenDirectIO   = 1 << 0
	FopenKeepCache  = 1 << 1
	FopenNonSeekable = 1 << 2
)

// FUSE_WRITE_* flags in WriteIn.WriteFlags.
const (
	WriteCache     = 1 << 0
	WriteLockOwner = 1 << 1
)

// FUSE_READ_* flags in ReadIn.ReadFlags.
const (
	ReadLockOwner = 1 << 1
)

// FUSE_RELEASE_* flags in ReleaseIn.ReleaseFlags.
const ReleaseFlush = 1 << 0

// RENAME2 flags, passed through verbatim to the filesystem callback.
const (
	RenameNoReplace = 1 << 0
	RenameExchange  = 1 << 1
)
