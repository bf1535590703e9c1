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

// Package fuse mounts a FUSE file system and serves it, mediating the
// session handshake, request dispatch, and reply assembly between the
// kernel and a github.com/masnagam/gofuse/fuseutil.FileSystem.
//
// The primary elements of interest are:
//
//  *  fuseutil.FileSystem, the interface a file system implements.
//
//  *  fuseutil.NotImplementedFileSystem, which may be embedded to obtain
//     default implementations for methods a particular file system
//     doesn't care about.
//
//  *  Mount, which opens the kernel connection and begins serving a
//     FileSystem in the background.
//
//  *  Session, which owns the handshake and the request/reply protocol
//     once a connection is open; most callers only need it for
//     notifications (InvalInode, InvalEntry, ...) and Shutdown.
//
// This package only supports Linux.
package fuse
