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

// Package fuseops decodes a single kernel message into a typed Operation
// and provides the reply builders a filesystem implementation fills in to
// answer it. Every accessor borrows from the InMessage passed to Decode;
// none of this package copies payload bytes.
package fuseops

import "github.com/masnagam/gofuse/internal/fusekernel"

// InodeID identifies an inode, as minted by the filesystem and echoed back
// by the kernel in later requests.
type InodeID uint64

// RootInodeID is the fixed ID of the filesystem root.
const RootInodeID InodeID = fusekernel.RootID

// HandleID identifies an open file or directory handle.
type HandleID uint64

// DirOffset is an opaque cookie into a directory stream.
type DirOffset uint64

// Generation disambiguates reused inode numbers across a filesystem's
// lifetime.
type Generation uint64
