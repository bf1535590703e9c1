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

package fuseutil

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/fuseops"
)

// FileSystem has one method per kernel operation a mounted filesystem may
// be asked to perform. INIT, INTERRUPT, and NOTIFY_REPLY are handled by
// the session itself and are not part of this interface. FORGET and
// BATCH_FORGET are delivered here, since a real filesystem typically needs
// them to drop cached state, but they carry no reply.
//
// Every method that can fail returns a plain error; Dispatch passes it to
// Responder.ReplyError, and a *fuse.Request sends the errno it wraps,
// falling back to EIO for errors that don't name one.
type FileSystem interface {
	Lookup(ctx context.Context, op *fuseops.LookupOp) (*fuseops.EntryReply, error)
	Forget(ctx context.Context, op *fuseops.ForgetOp)
	BatchForget(ctx context.Context, op *fuseops.BatchForgetOp)
	GetAttr(ctx context.Context, op *fuseops.GetattrOp) (*fuseops.AttrReply, error)
	SetAttr(ctx context.Context, op *fuseops.SetattrOp) (*fuseops.AttrReply, error)
	Readlink(ctx context.Context, op *fuseops.ReadlinkOp) (*fuseops.ReadReply, error)
	Symlink(ctx context.Context, op *fuseops.SymlinkOp) (*fuseops.EntryReply, error)
	Mknod(ctx context.Context, op *fuseops.MknodOp) (*fuseops.EntryReply, error)
	Mkdir(ctx context.Context, op *fuseops.MkdirOp) (*fuseops.EntryReply, error)
	Unlink(ctx context.Context, op *fuseops.UnlinkOp) error
	Rmdir(ctx context.Context, op *fuseops.RmdirOp) error
	Rename(ctx context.Context, op *fuseops.RenameOp) error
	Rename2(ctx context.Context, op *fuseops.RenameOp2) error
	Link(ctx context.Context, op *fuseops.LinkOp) (*fuseops.EntryReply, error)
	Open(ctx context.Context, op *fuseops.OpenOp) (*fuseops.OpenReply, error)
	Read(ctx context.Context, op *fuseops.ReadOp) (*fuseops.ReadReply, error)
	Write(ctx context.Context, op *fuseops.WriteOp) (*fuseops.WriteReply, error)
	Statfs(ctx context.Context, op *fuseops.StatfsOp) (*fuseops.StatfsReply, error)
	Release(ctx context.Context, op *fuseops.ReleaseOp) error
	Fsync(ctx context.Context, op *fuseops.FsyncOp) error
	Setxattr(ctx context.Context, op *fuseops.SetxattrOp) error
	Getxattr(ctx context.Context, op *fuseops.GetxattrOp) (atomicbytes.AtomicBytes, error)
	Listxattr(ctx context.Context, op *fuseops.ListxattrOp) (atomicbytes.AtomicBytes, error)
	Removexattr(ctx context.Context, op *fuseops.RemovexattrOp) error
	Flush(ctx context.Context, op *fuseops.FlushOp) error
	Opendir(ctx context.Context, op *fuseops.OpendirOp) (*fuseops.OpenReply, error)
	Readdir(ctx context.Context, op *fuseops.ReaddirOp) (atomicbytes.AtomicBytes, error)
	ReaddirPlus(ctx context.Context, op *fuseops.ReaddirPlusOp) (atomicbytes.AtomicBytes, error)
	Releasedir(ctx context.Context, op *fuseops.ReleasedirOp) error
	Fsyncdir(ctx context.Context, op *fuseops.FsyncdirOp) error
	Getlk(ctx context.Context, op *fuseops.GetlkOp) (*fuseops.LkReply, error)
	Setlk(ctx context.Context, op *fuseops.SetlkOp) error
	Setlkw(ctx context.Context, op *fuseops.SetlkwOp) error
	Access(ctx context.Context, op *fuseops.AccessOp) error
	Create(ctx context.Context, op *fuseops.CreateOp) (*fuseops.CreateReply, error)
	Bmap(ctx context.Context, op *fuseops.BmapOp) (*fuseops.BmapReply, error)
	Destroy(ctx context.Context, op *fuseops.DestroyOp)
	Ioctl(ctx context.Context, op *fuseops.IoctlOp) (*fuseops.IoctlReply, error)
	Poll(ctx context.Context, op *fuseops.PollOp) (*fuseops.PollReply, error)
	Fallocate(ctx context.Context, op *fuseops.FallocateOp) error
	CopyFileRange(ctx context.Context, op *fuseops.CopyFileRangeOp) (*fuseops.WriteReply, error)
}

// Responder is the subset of fuse.Request the Dispatch function needs:
// enough to send exactly one reply (data or error) without fuseutil
// importing the root package and creating an import cycle.
type Responder interface {
	Reply(atomicbytes.AtomicBytes)
	ReplyError(error)
	Context() context.Context
}

// Dispatch type-switches op and invokes the matching FileSystem method,
// sending exactly one reply on r (none for FORGET and BATCH_FORGET, which
// carry no reply). Unrecognized ops (fuseops.UnknownOp) are
// answered with ENOSYS without reaching fs.
func Dispatch(fs FileSystem, r Responder, op fuseops.Operation) {
	ctx := r.Context()

	switch t := op.(type) {
	case *fuseops.LookupOp:
		p, err := fs.Lookup(ctx, t)
		reply(r, p, err)
	case *fuseops.ForgetOp:
		fs.Forget(ctx, t)
	case *fuseops.BatchForgetOp:
		fs.BatchForget(ctx, t)
	case *fuseops.GetattrOp:
		p, err := fs.GetAttr(ctx, t)
		reply(r, p, err)
	case *fuseops.SetattrOp:
		p, err := fs.SetAttr(ctx, t)
		reply(r, p, err)
	case *fuseops.ReadlinkOp:
		p, err := fs.Readlink(ctx, t)
		reply(r, p, err)
	case *fuseops.SymlinkOp:
		p, err := fs.Symlink(ctx, t)
		reply(r, p, err)
	case *fuseops.MknodOp:
		p, err := fs.Mknod(ctx, t)
		reply(r, p, err)
	case *fuseops.MkdirOp:
		p, err := fs.Mkdir(ctx, t)
		reply(r, p, err)
	case *fuseops.UnlinkOp:
		replyErrOnly(r, fs.Unlink(ctx, t))
	case *fuseops.RmdirOp:
		replyErrOnly(r, fs.Rmdir(ctx, t))
	case *fuseops.RenameOp:
		replyErrOnly(r, fs.Rename(ctx, t))
	case *fuseops.RenameOp2:
		replyErrOnly(r, fs.Rename2(ctx, t))
	case *fuseops.LinkOp:
		p, err := fs.Link(ctx, t)
		reply(r, p, err)
	case *fuseops.OpenOp:
		p, err := fs.Open(ctx, t)
		reply(r, p, err)
	case *fuseops.ReadOp:
		p, err := fs.Read(ctx, t)
		reply(r, p, err)
	case *fuseops.WriteOp:
		p, err := fs.Write(ctx, t)
		reply(r, p, err)
	case *fuseops.StatfsOp:
		p, err := fs.Statfs(ctx, t)
		reply(r, p, err)
	case *fuseops.ReleaseOp:
		replyErrOnly(r, fs.Release(ctx, t))
	case *fuseops.FsyncOp:
		replyErrOnly(r, fs.Fsync(ctx, t))
	case *fuseops.SetxattrOp:
		replyErrOnly(r, fs.Setxattr(ctx, t))
	case *fuseops.GetxattrOp:
		p, err := fs.Getxattr(ctx, t)
		reply(r, p, err)
	case *fuseops.ListxattrOp:
		p, err := fs.Listxattr(ctx, t)
		reply(r, p, err)
	case *fuseops.RemovexattrOp:
		replyErrOnly(r, fs.Removexattr(ctx, t))
	case *fuseops.FlushOp:
		replyErrOnly(r, fs.Flush(ctx, t))
	case *fuseops.OpendirOp:
		p, err := fs.Opendir(ctx, t)
		reply(r, p, err)
	case *fuseops.ReaddirOp:
		p, err := fs.Readdir(ctx, t)
		reply(r, p, err)
	case *fuseops.ReaddirPlusOp:
		p, err := fs.ReaddirPlus(ctx, t)
		reply(r, p, err)
	case *fuseops.ReleasedirOp:
		replyErrOnly(r, fs.Releasedir(ctx, t))
	case *fuseops.FsyncdirOp:
		replyErrOnly(r, fs.Fsyncdir(ctx, t))
	case *fuseops.GetlkOp:
		p, err := fs.Getlk(ctx, t)
		reply(r, p, err)
	case *fuseops.SetlkOp:
		replyErrOnly(r, fs.Setlk(ctx, t))
	case *fuseops.SetlkwOp:
		replyErrOnly(r, fs.Setlkw(ctx, t))
	case *fuseops.AccessOp:
		replyErrOnly(r, fs.Access(ctx, t))
	case *fuseops.CreateOp:
		p, err := fs.Create(ctx, t)
		reply(r, p, err)
	case *fuseops.BmapOp:
		p, err := fs.Bmap(ctx, t)
		reply(r, p, err)
	case *fuseops.DestroyOp:
		fs.Destroy(ctx, t)
		r.Reply(atomicbytes.Unit{})
	case *fuseops.IoctlOp:
		p, err := fs.Ioctl(ctx, t)
		reply(r, p, err)
	case *fuseops.PollOp:
		p, err := fs.Poll(ctx, t)
		reply(r, p, err)
	case *fuseops.FallocateOp:
		replyErrOnly(r, fs.Fallocate(ctx, t))
	case *fuseops.CopyFileRangeOp:
		p, err := fs.CopyFileRange(ctx, t)
		reply(r, p, err)
	case *fuseops.UnknownOp:
		r.ReplyError(unix.ENOSYS)
	default:
		r.ReplyError(unix.ENOSYS)
	}
}

// reply adapts a (payload, error) pair as returned by most FileSystem
// methods into exactly one call on r.
func reply[T atomicbytes.AtomicBytes](r Responder, payload T, err error) {
	if err != nil {
		r.ReplyError(err)
		return
	}
	r.Reply(payload)
}

func replyErrOnly(r Responder, err error) {
	if err != nil {
		r.ReplyError(err)
		return
	}
	r.Reply(atomicbytes.Unit{})
}
