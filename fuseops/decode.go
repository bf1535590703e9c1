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
	"fmt"
	"unsafe"

	"github.com/masnagam/gofuse/internal/buffer"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

// DecodeError reports that a kernel message could not be parsed into an
// Operation. The session replies EIO to Unique (when known) and continues
// reading.
type DecodeError struct {
	Unique uint64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode request %#x: %s", e.Unique, e.Reason)
}

func decodeErr(h *fusekernel.InHeader, format string, args ...interface{}) error {
	return &DecodeError{Unique: h.Unique, Reason: fmt.Sprintf(format, args...)}
}

// Decode parses the single kernel message held by msg into a Header plus a
// typed Operation. The returned Operation's payload fields borrow from
// msg; they must not be retained past the request's handling.
func Decode(msg *buffer.InMessage, protocol fusekernel.Protocol) (Operation, error) {
	h := msg.Header()

	base := Header{
		Opcode: fusekernel.Opcode(h.Opcode),
		Unique: h.Unique,
		Nodeid: InodeID(h.Nodeid),
		Uid:    h.Uid,
		Gid:    h.Gid,
		Pid:    h.Pid,
	}
	oh := opHeader{h: base}

	switch base.Opcode {
	case fusekernel.OpInit:
		in := consumeStruct[fusekernel.InitIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated INIT payload")
		}
		return &InitOp{
			opHeader:     oh,
			Kernel:       fusekernel.Protocol{Major: in.Major, Minor: in.Minor},
			MaxReadahead: in.MaxReadahead,
			Flags:        fusekernel.InitFlags(in.Flags),
		}, nil

	case fusekernel.OpLookup:
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "LOOKUP missing name")
		}
		return &LookupOp{opHeader: oh, Name: name}, nil

	case fusekernel.OpForget:
		in := consumeStruct[fusekernel.ForgetIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated FORGET payload")
		}
		return &ForgetOp{opHeader: oh, Nlookup: in.Nlookup}, nil

	case fusekernel.OpBatchForget:
		in := consumeStruct[fusekernel.BatchForgetIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated BATCH_FORGET header")
		}
		entries := consumeArray[fusekernel.ForgetOne](msg, int(in.Count))
		if entries == nil {
			return nil, decodeErr(h, "truncated BATCH_FORGET entries")
		}
		return &BatchForgetOp{opHeader: oh, Entries: entries}, nil

	case fusekernel.OpGetattr:
		in := consumeStruct[fusekernel.GetattrIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated GETATTR payload")
		}
		op := &GetattrOp{opHeader: oh}
		if in.GetattrFlags&fusekernel.GetattrFh != 0 {
			op.Handle = HandleID(in.Fh)
			op.UseHandle = true
		}
		return op, nil

	case fusekernel.OpSetattr:
		in := consumeStruct[fusekernel.SetattrIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated SETATTR payload")
		}
		return decodeSetattr(oh, in), nil

	case fusekernel.OpReadlink:
		return &ReadlinkOp{opHeader: oh}, nil

	case fusekernel.OpSymlink:
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "SYMLINK missing name")
		}
		target, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "SYMLINK missing target")
		}
		return &SymlinkOp{opHeader: oh, Name: name, Target: target}, nil

	case fusekernel.OpMknod:
		in := consumeStruct[fusekernel.MknodIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated MKNOD payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "MKNOD missing name")
		}
		return &MknodOp{opHeader: oh, Name: name, Mode: in.Mode, Rdev: in.Rdev, Umask: in.Umask}, nil

	case fusekernel.OpMkdir:
		in := consumeStruct[fusekernel.MkdirIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated MKDIR payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "MKDIR missing name")
		}
		return &MkdirOp{opHeader: oh, Name: name, Mode: in.Mode, Umask: in.Umask}, nil

	case fusekernel.OpUnlink:
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "UNLINK missing name")
		}
		return &UnlinkOp{opHeader: oh, Name: name}, nil

	case fusekernel.OpRmdir:
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "RMDIR missing name")
		}
		return &RmdirOp{opHeader: oh, Name: name}, nil

	case fusekernel.OpRename:
		in := consumeStruct[fusekernel.RenameIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated RENAME payload")
		}
		oldName, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "RENAME missing old name")
		}
		newName, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "RENAME missing new name")
		}
		return &RenameOp{opHeader: oh, NewDir: InodeID(in.Newdir), OldName: oldName, NewName: newName}, nil

	case fusekernel.OpRename2:
		in := consumeStruct[fusekernel.Rename2In](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated RENAME2 payload")
		}
		oldName, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "RENAME2 missing old name")
		}
		newName, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "RENAME2 missing new name")
		}
		return &RenameOp2{opHeader: oh, NewDir: InodeID(in.Newdir), OldName: oldName, NewName: newName, Flags: in.Flags}, nil

	case fusekernel.OpLink:
		in := consumeStruct[fusekernel.LinkIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated LINK payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "LINK missing name")
		}
		return &LinkOp{opHeader: oh, OldNodeid: InodeID(in.Oldnodeid), NewName: name}, nil

	case fusekernel.OpOpen:
		in := consumeStruct[fusekernel.OpenIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated OPEN payload")
		}
		return &OpenOp{opHeader: oh, Flags: in.Flags}, nil

	case fusekernel.OpRead:
		in := consumeStruct[fusekernel.ReadIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated READ payload")
		}
		return &ReadOp{opHeader: oh, Handle: HandleID(in.Fh), Offset: int64(in.Offset), Size: in.Size, Flags: in.Flags}, nil

	case fusekernel.OpWrite:
		in := consumeStruct[fusekernel.WriteIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated WRITE payload")
		}
		data := msg.ConsumeBytes(int(in.Size))
		if data == nil {
			return nil, decodeErr(h, "WRITE data shorter than declared size %d", in.Size)
		}
		return &WriteOp{opHeader: oh, Handle: HandleID(in.Fh), Offset: int64(in.Offset), Flags: in.Flags, Data: data}, nil

	case fusekernel.OpStatfs:
		return &StatfsOp{opHeader: oh}, nil

	case fusekernel.OpRelease:
		in := consumeStruct[fusekernel.ReleaseIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated RELEASE payload")
		}
		return &ReleaseOp{opHeader: oh, Handle: HandleID(in.Fh), Flags: in.Flags}, nil

	case fusekernel.OpFsync:
		in := consumeStruct[fusekernel.FsyncIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated FSYNC payload")
		}
		return &FsyncOp{opHeader: oh, Handle: HandleID(in.Fh), DataSyncOnly: in.FsyncFlags&fusekernel.FsyncFdatasync != 0}, nil

	case fusekernel.OpSetxattr:
		in := consumeStruct[fusekernel.SetxattrIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated SETXATTR payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "SETXATTR missing name")
		}
		value := msg.ConsumeBytes(int(in.Size))
		if value == nil {
			return nil, decodeErr(h, "SETXATTR value shorter than declared size %d", in.Size)
		}
		return &SetxattrOp{opHeader: oh, Name: name, Value: value, Flags: in.Flags}, nil

	case fusekernel.OpGetxattr:
		in := consumeStruct[fusekernel.GetxattrIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated GETXATTR payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "GETXATTR missing name")
		}
		return &GetxattrOp{opHeader: oh, Name: name, Size: in.Size}, nil

	case fusekernel.OpListxattr:
		in := consumeStruct[fusekernel.GetxattrIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated LISTXATTR payload")
		}
		return &ListxattrOp{opHeader: oh, Size: in.Size}, nil

	case fusekernel.OpRemovexattr:
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "REMOVEXATTR missing name")
		}
		return &RemovexattrOp{opHeader: oh, Name: name}, nil

	case fusekernel.OpFlush:
		in := consumeStruct[fusekernel.ReleaseIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated FLUSH payload")
		}
		return &FlushOp{opHeader: oh, Handle: HandleID(in.Fh), LockOwner: in.LockOwner}, nil

	case fusekernel.OpOpendir:
		in := consumeStruct[fusekernel.OpenIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated OPENDIR payload")
		}
		return &OpendirOp{opHeader: oh, Flags: in.Flags}, nil

	case fusekernel.OpReaddir:
		in := consumeStruct[fusekernel.ReadIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated READDIR payload")
		}
		return &ReaddirOp{opHeader: oh, Handle: HandleID(in.Fh), Offset: DirOffset(in.Offset), Size: int(in.Size)}, nil

	case fusekernel.OpReaddirplus:
		in := consumeStruct[fusekernel.ReadIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated READDIRPLUS payload")
		}
		return &ReaddirPlusOp{opHeader: oh, Handle: HandleID(in.Fh), Offset: DirOffset(in.Offset), Size: int(in.Size)}, nil

	case fusekernel.OpReleasedir:
		in := consumeStruct[fusekernel.ReleaseIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated RELEASEDIR payload")
		}
		return &ReleasedirOp{opHeader: oh, Handle: HandleID(in.Fh), Flags: in.Flags}, nil

	case fusekernel.OpFsyncdir:
		in := consumeStruct[fusekernel.FsyncIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated FSYNCDIR payload")
		}
		return &FsyncdirOp{opHeader: oh, Handle: HandleID(in.Fh), DataSyncOnly: in.FsyncFlags&fusekernel.FsyncFdatasync != 0}, nil

	case fusekernel.OpGetlk:
		in := consumeStruct[fusekernel.LkIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated GETLK payload")
		}
		return &GetlkOp{opHeader: oh, Handle: HandleID(in.Fh), Owner: in.Owner, Lock: in.Lk}, nil

	case fusekernel.OpSetlk:
		in := consumeStruct[fusekernel.LkIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated SETLK payload")
		}
		return &SetlkOp{opHeader: oh, Handle: HandleID(in.Fh), Owner: in.Owner, Lock: in.Lk, Flock: in.LkFlags&fusekernel.LkFlock != 0}, nil

	case fusekernel.OpSetlkw:
		in := consumeStruct[fusekernel.LkIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated SETLKW payload")
		}
		return &SetlkwOp{opHeader: oh, Handle: HandleID(in.Fh), Owner: in.Owner, Lock: in.Lk, Flock: in.LkFlags&fusekernel.LkFlock != 0}, nil

	case fusekernel.OpAccess:
		in := consumeStruct[fusekernel.AccessIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated ACCESS payload")
		}
		return &AccessOp{opHeader: oh, Mask: in.Mask}, nil

	case fusekernel.OpCreate:
		in := consumeStruct[fusekernel.CreateIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated CREATE payload")
		}
		name, ok := msg.ConsumeName()
		if !ok {
			return nil, decodeErr(h, "CREATE missing name")
		}
		return &CreateOp{opHeader: oh, Name: name, Flags: in.Flags, Mode: in.Mode, Umask: in.Umask}, nil

	case fusekernel.OpInterrupt:
		in := consumeStruct[fusekernel.InterruptIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated INTERRUPT payload")
		}
		return &InterruptOp{opHeader: oh, TargetUnique: in.Unique}, nil

	case fusekernel.OpBmap:
		in := consumeStruct[fusekernel.BmapIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated BMAP payload")
		}
		return &BmapOp{opHeader: oh, Block: in.Block, Blocksize: in.Blocksize}, nil

	case fusekernel.OpDestroy:
		return &DestroyOp{opHeader: oh}, nil

	case fusekernel.OpIoctl:
		in := consumeStruct[fusekernel.IoctlIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated IOCTL payload")
		}
		inData := msg.ConsumeBytes(int(in.InSize))
		if inData == nil && in.InSize != 0 {
			return nil, decodeErr(h, "IOCTL in-data shorter than declared size %d", in.InSize)
		}
		return &IoctlOp{opHeader: oh, Handle: HandleID(in.Fh), Cmd: in.Cmd, Arg: in.Arg, Flags: in.Flags, InData: inData, OutSize: in.OutSize}, nil

	case fusekernel.OpPoll:
		in := consumeStruct[fusekernel.PollIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated POLL payload")
		}
		return &PollOp{opHeader: oh, Handle: HandleID(in.Fh), Kh: in.Kh, Flags: in.Flags}, nil

	case fusekernel.OpNotifyReply:
		in := consumeStruct[fusekernel.NotifyRetrieveIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated NOTIFY_REPLY payload")
		}
		data := msg.ConsumeAll()
		return &NotifyReplyOp{opHeader: oh, RetrieveUnique: h.Unique, Offset: in.Offset, Data: data}, nil

	case fusekernel.OpFallocate:
		in := consumeStruct[fusekernel.FallocateIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated FALLOCATE payload")
		}
		return &FallocateOp{opHeader: oh, Handle: HandleID(in.Fh), Offset: in.Offset, Length: in.Length, Mode: in.Mode}, nil

	case fusekernel.OpCopyFileRange:
		in := consumeStruct[fusekernel.CopyFileRangeIn](msg)
		if in == nil {
			return nil, decodeErr(h, "truncated COPY_FILE_RANGE payload")
		}
		return &CopyFileRangeOp{
			opHeader:  oh,
			HandleIn:  HandleID(in.FhIn),
			OffsetIn:  in.OffIn,
			NodeidOut: InodeID(in.NodeidOut),
			HandleOut: HandleID(in.FhOut),
			OffsetOut: in.OffOut,
			Len:       in.Len,
			Flags:     in.Flags,
		}, nil

	default:
		return &UnknownOp{opHeader: oh, RawOpcode: h.Opcode}, nil
	}
}

func decodeSetattr(oh opHeader, in *fusekernel.SetattrIn) *SetattrOp {
	op := &SetattrOp{opHeader: oh}
	if in.Valid&fusekernel.FattrFh != 0 {
		op.Handle = HandleID(in.Fh)
		op.UseHandle = true
	}
	if in.Valid&fusekernel.FattrSize != 0 {
		v := in.Size
		op.Size = &v
	}
	if in.Valid&fusekernel.FattrMode != 0 {
		v := in.Mode
		op.Mode = &v
	}
	if in.Valid&fusekernel.FattrUID != 0 {
		v := in.Uid
		op.Uid = &v
	}
	if in.Valid&fusekernel.FattrGID != 0 {
		v := in.Gid
		op.Gid = &v
	}
	if in.Valid&fusekernel.FattrAtimeNow != 0 {
		t := TimeNow()
		op.Atime = &t
	} else if in.Valid&fusekernel.FattrAtime != 0 {
		t := AbsoluteTime(secNsec(in.Atime, in.Atimensec))
		op.Atime = &t
	}
	if in.Valid&fusekernel.FattrMtimeNow != 0 {
		t := TimeNow()
		op.Mtime = &t
	} else if in.Valid&fusekernel.FattrMtime != 0 {
		t := AbsoluteTime(secNsec(in.Mtime, in.Mtimensec))
		op.Mtime = &t
	}
	return op
}

// consumeStruct reads sizeof(T) bytes off msg and reinterprets them in
// place as *T, returning nil if too few bytes remain.
func consumeStruct[T any](msg *buffer.InMessage) *T {
	var zero T
	n := int(unsafe.Sizeof(zero))
	p := msg.Consume(n)
	if p == nil {
		return nil
	}
	return (*T)(p)
}

// consumeArray reads n contiguous T records off msg, returning a borrowed
// slice, or nil if too few bytes remain.
func consumeArray[T any](msg *buffer.InMessage, n int) []T {
	if n < 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	b := msg.ConsumeBytes(size * n)
	if b == nil {
		return nil
	}
	if n == 0 {
		return []T{}
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}
