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

package fuse

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/internal/buffer"
)

// fuseDevIocClone is FUSE_DEV_IOC_CLONE, _IOR(229, 0, uint32): passed the
// fd of the connection's original /dev/fuse open, it binds a freshly
// opened /dev/fuse fd to the same session so replies can be written from
// more than one file descriptor.
const fuseDevIocClone = 0x8004e500

// Connection owns the file descriptor bound to /dev/fuse after the mount
// syscall dance. It knows nothing about opcodes, the handshake, or
// in-flight request bookkeeping; that belongs to Session.
type Connection struct {
	dev *os.File

	bufferSize int
	inPool     sync.Pool // of *buffer.InMessage, sized to bufferSize

	// readTimeout, if nonzero, bounds how long read blocks on dev before
	// giving up; see MountConfig.ReadTimeout.
	readTimeout time.Duration

	// writeMu serializes writes against this fd. The kernel already
	// serializes writes per fd, but Go's runtime may otherwise interleave
	// two goroutines' syscall.Write calls on the same fd into a single
	// garbled frame, so we still need our own lock.
	writeMu sync.Mutex
}

// newConnection wraps an already-mounted /dev/fuse descriptor. bufferSize
// must be at least fusekernel.MinReadBuffer; Session computes it once the
// handshake has negotiated max_write.
func newConnection(dev *os.File, bufferSize int) *Connection {
	c := &Connection{}
	c.resizeBuffers(bufferSize)
	c.dev = dev
	return c
}

// setReadTimeout configures the deadline read applies to dev before each
// read(2); zero disables the deadline.
func (c *Connection) setReadTimeout(d time.Duration) {
	c.readTimeout = d
}

// resizeBuffers replaces the pool of read buffers with ones of size bytes.
// Called once, by Session's handshake, after max_write is negotiated;
// must not race with concurrent reads.
func (c *Connection) resizeBuffers(size int) {
	c.bufferSize = size
	c.inPool = sync.Pool{New: func() any { return buffer.NewInMessage(size) }}
}

// read performs one read(2) into a pooled buffer, returning exactly the
// next kernel message. io.EOF means the kernel has sent ENODEV: the
// session should shut down cleanly. Any other error is terminal-failure.
func (c *Connection) read() (*buffer.InMessage, error) {
	m := c.inPool.Get().(*buffer.InMessage)

	for {
		if c.readTimeout > 0 {
			if err := c.dev.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				c.inPool.Put(m)
				return nil, fmt.Errorf("set read deadline: %w", err)
			}
		}

		err := m.Init(c.dev)
		if pe, ok := err.(*os.PathError); ok {
			switch pe.Err {
			case syscall.ENODEV:
				err = io.EOF
			case syscall.EINTR:
				continue
			}
		}
		if err != nil {
			c.inPool.Put(m)
			return nil, err
		}
		return m, nil
	}
}

// putMessage returns m to the pool once its borrows are no longer needed,
// i.e. after the request built from it has been replied to.
func (c *Connection) putMessage(m *buffer.InMessage) {
	c.inPool.Put(m)
}

// writeVectored issues chunks as a single write(2)v against the device. A
// reply must land in one syscall or fail outright; a partial write is
// reported as an error rather than retried, since retrying would hand the
// kernel a second, malformed frame.
func (c *Connection) writeVectored(chunks [][]byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	want := 0
	for _, ch := range chunks {
		want += len(ch)
	}

	for {
		n, err := unix.Writev(int(c.dev.Fd()), chunks)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("writev: %w", err)
		}
		if int(n) != want {
			return fmt.Errorf("writev: wrote %d bytes, expected %d", n, want)
		}
		return nil
	}
}

// tryClone opens a second /dev/fuse descriptor and binds it to this
// connection's session via FUSE_DEV_IOC_CLONE, returning a Connection that
// shares protocol state but has its own independent write path. Called by
// Session.serveConcurrent to give each worker its own writer fd, so the
// kernel serializes replies per fd instead of every worker contending on
// one Connection's writeMu.
func (c *Connection) tryClone() (*Connection, error) {
	clone, err := os.OpenFile("/dev/fuse", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/fuse for clone: %w", err)
	}

	master := uint32(c.dev.Fd())
	if err := unix.IoctlSetPointerInt(int(clone.Fd()), fuseDevIocClone, int(master)); err != nil {
		clone.Close()
		return nil, fmt.Errorf("FUSE_DEV_IOC_CLONE: %w", err)
	}

	cloned := newConnection(clone, c.bufferSize)
	cloned.setReadTimeout(c.readTimeout)
	return cloned, nil
}

// close releases the device descriptor. Callers must not call close until
// every request read from the connection has been replied to.
func (c *Connection) close() error {
	return c.dev.Close()
}
