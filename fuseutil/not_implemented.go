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

// NotImplementedFileSystem answers every op with ENOSYS. Embed this in
// your type to inherit default implementations for the methods you don't
// care about, so your type keeps implementing FileSystem as new methods
// are added.
type NotImplementedFileSystem struct{}

var _ FileSystem = &NotImplementedFileSystem{}

func (fs *NotImplementedFileSystem) Lookup(context.Context, *fuseops.LookupOp) (*fuseops.EntryReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Forget(context.Context, *fuseops.ForgetOp) {}

func (fs *NotImplementedFileSystem) BatchForget(context.Context, *fuseops.BatchForgetOp) {}

func (fs *NotImplementedFileSystem) GetAttr(context.Context, *fuseops.GetattrOp) (*fuseops.AttrReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) SetAttr(context.Context, *fuseops.SetattrOp) (*fuseops.AttrReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Readlink(context.Context, *fuseops.ReadlinkOp) (*fuseops.ReadReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Symlink(context.Context, *fuseops.SymlinkOp) (*fuseops.EntryReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Mknod(context.Context, *fuseops.MknodOp) (*fuseops.EntryReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Mkdir(context.Context, *fuseops.MkdirOp) (*fuseops.EntryReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Unlink(context.Context, *fuseops.UnlinkOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Rmdir(context.Context, *fuseops.RmdirOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Rename(context.Context, *fuseops.RenameOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Rename2(context.Context, *fuseops.RenameOp2) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Link(context.Context, *fuseops.LinkOp) (*fuseops.EntryReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Open(context.Context, *fuseops.OpenOp) (*fuseops.OpenReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Read(context.Context, *fuseops.ReadOp) (*fuseops.ReadReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Write(context.Context, *fuseops.WriteOp) (*fuseops.WriteReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Statfs(context.Context, *fuseops.StatfsOp) (*fuseops.StatfsReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Release(context.Context, *fuseops.ReleaseOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Fsync(context.Context, *fuseops.FsyncOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Setxattr(context.Context, *fuseops.SetxattrOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Getxattr(context.Context, *fuseops.GetxattrOp) (atomicbytes.AtomicBytes, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Listxattr(context.Context, *fuseops.ListxattrOp) (atomicbytes.AtomicBytes, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Removexattr(context.Context, *fuseops.RemovexattrOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Flush(context.Context, *fuseops.FlushOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Opendir(context.Context, *fuseops.OpendirOp) (*fuseops.OpenReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Readdir(context.Context, *fuseops.ReaddirOp) (atomicbytes.AtomicBytes, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) ReaddirPlus(context.Context, *fuseops.ReaddirPlusOp) (atomicbytes.AtomicBytes, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Releasedir(context.Context, *fuseops.ReleasedirOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Fsyncdir(context.Context, *fuseops.FsyncdirOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Getlk(context.Context, *fuseops.GetlkOp) (*fuseops.LkReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Setlk(context.Context, *fuseops.SetlkOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Setlkw(context.Context, *fuseops.SetlkwOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Access(context.Context, *fuseops.AccessOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Create(context.Context, *fuseops.CreateOp) (*fuseops.CreateReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Bmap(context.Context, *fuseops.BmapOp) (*fuseops.BmapReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Destroy(context.Context, *fuseops.DestroyOp) {}

func (fs *NotImplementedFileSystem) Ioctl(context.Context, *fuseops.IoctlOp) (*fuseops.IoctlReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Poll(context.Context, *fuseops.PollOp) (*fuseops.PollReply, error) {
	return nil, unix.ENOSYS
}

func (fs *NotImplementedFileSystem) Fallocate(context.Context, *fuseops.FallocateOp) error {
	return unix.ENOSYS
}

func (fs *NotImplementedFileSystem) CopyFileRange(context.Context, *fuseops.CopyFileRangeOp) (*fuseops.WriteReply, error) {
	return nil, unix.ENOSYS
}
