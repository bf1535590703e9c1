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

package fuse

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Errors corresponding to kernel error numbers, for use by FileSystem
// implementations and for comparison against errors this package returns.
// Any unix.Errno value works as a reply error; these are simply the ones
// a filesystem is most likely to need a name for.
const (
	EIO       = unix.EIO
	ENOENT    = unix.ENOENT
	ENOSYS    = unix.ENOSYS
	ENOTEMPTY = unix.ENOTEMPTY
	EEXIST    = unix.EEXIST
	EPERM     = unix.EPERM
	EINVAL    = unix.EINVAL
	ERANGE    = unix.ERANGE
	ENODATA   = unix.ENODATA
	ENOTDIR   = unix.ENOTDIR
	EISDIR    = unix.EISDIR
)

// errnoOf maps an error returned by a FileSystem callback to the negative
// errno written into OutHeader.Error. Errors that don't name a kernel
// errno become EIO.
func errnoOf(err error) int32 {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return -int32(errno)
	}
	return -int32(unix.EIO)
}

// ProtocolError reports a handshake failure: an unsupported or malformed
// INIT exchange. It is fatal to the Session that produced it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "fuse: protocol error: " + e.Reason }
