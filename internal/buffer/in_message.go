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

// Package buffer holds the low-level, zero-copy views over a single kernel
// message that the fuseops decoder builds typed operations on top of.
package buffer

import (
	"bytes"
	"fmt"
	"io"
	"unsafe"

	"github.com/masnagam/gofuse/internal/fusekernel"
)

// HeaderSize is the size in bytes of the leading fusekernel.InHeader.
const HeaderSize = int(unsafe.Sizeof(fusekernel.InHeader{}))

// InMessage is a single message read from /dev/fuse. It owns the backing
// array for the lifetime of the request; every borrow handed out by
// Consume/ConsumeBytes/ConsumeName aliases this array and must not be
// retained past the request's handling.
type InMessage struct {
	buf []byte // the bytes actually read; len(buf) <= cap(buf)
	off int    // consumption offset, starts at HeaderSize
}

// NewInMessage allocates an InMessage with room for the given buffer size.
func NewInMessage(size int) *InMessage {
	return &InMessage{buf: make([]byte, 0, size)}
}

// Init performs a single read(2) into m's backing storage, replacing its
// previous contents. A short read (fewer than HeaderSize bytes) is reported
// as io.ErrUnexpectedEOF, and a header length that differs from the bytes
// read is also an error. Connection.read returns either error to Session,
// which ends its serve loop with it; no EIO reply is sent for such a frame.
func (m *InMessage) Init(r io.Reader) error {
	m.buf = m.buf[:cap(m.buf)]
	n, err := r.Read(m.buf)
	if err != nil {
		return err
	}
	m.buf = m.buf[:n]
	m.off = HeaderSize

	if n < HeaderSize {
		return fmt.Errorf("%w: read %d bytes, need at least %d", io.ErrUnexpectedEOF, n, HeaderSize)
	}

	if got, want := int(m.Header().Len), n; int(got) != want {
		return fmt.Errorf("in_header.len (%d) does not match bytes read (%d)", got, want)
	}

	return nil
}

// Header returns the fixed 40-byte header of the most recently read
// message.
func (m *InMessage) Header() *fusekernel.InHeader {
	return (*fusekernel.InHeader)(unsafe.Pointer(&m.buf[0]))
}

// Len returns the total number of bytes in the message, header included.
func (m *InMessage) Len() int {
	return len(m.buf)
}

// Remaining returns the number of unconsumed payload bytes.
func (m *InMessage) Remaining() int {
	return len(m.buf) - m.off
}

// Consume returns a pointer to the next n unconsumed bytes, advancing the
// consumption offset, or nil if fewer than n bytes remain.
func (m *InMessage) Consume(n int) unsafe.Pointer {
	if n < 0 || m.Remaining() < n {
		return nil
	}
	p := unsafe.Pointer(&m.buf[m.off])
	m.off += n
	return p
}

// ConsumeBytes is equivalent to Consume, but returns a borrowed slice. The
// result is nil if fewer than n bytes remain.
func (m *InMessage) ConsumeBytes(n int) []byte {
	if n < 0 || m.Remaining() < n {
		return nil
	}
	b := m.buf[m.off : m.off+n : m.off+n]
	m.off += n
	return b
}

// ConsumeAll returns every remaining unconsumed byte as a borrow.
func (m *InMessage) ConsumeAll() []byte {
	return m.ConsumeBytes(m.Remaining())
}

// ConsumeName consumes a NUL-terminated name from the buffer, returning the
// borrowed bytes with the terminator stripped. Returns false if no NUL
// byte is found in the remaining bytes.
func (m *InMessage) ConsumeName() ([]byte, bool) {
	rest := m.buf[m.off:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return nil, false
	}
	name := rest[:i:i]
	m.off += i + 1
	return name, true
}
