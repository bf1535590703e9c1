package fuse

import (
	"os"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/examples/hellofs"
	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

// newFuseSocketPair stands in for /dev/fuse: a connected pair of fds where
// one end plays the kernel, the other is handed to Connection as the
// device. Unlike os.Pipe, a stream socket is bidirectional, matching how a
// real /dev/fuse descriptor is used for both reads and writes.
func newFuseSocketPair(t *testing.T) (kernel, dev *os.File) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	kernel = os.NewFile(uintptr(fds[0]), "kernel-side")
	dev = os.NewFile(uintptr(fds[1]), "dev-side")
	t.Cleanup(func() { kernel.Close(); dev.Close() })
	return kernel, dev
}

func sendRequest(t *testing.T, kernel *os.File, opcode fusekernel.Opcode, unique, nodeid uint64, payload []byte) {
	t.Helper()

	h := fusekernel.InHeader{
		Len:    uint32(unsafe.Sizeof(fusekernel.InHeader{}) + uintptr(len(payload))),
		Opcode: uint32(opcode),
		Unique: unique,
		Nodeid: nodeid,
	}

	buf := make([]byte, 0, h.Len)
	buf = append(buf, unsafe.Slice((*byte)(unsafe.Pointer(&h)), unsafe.Sizeof(h))...)
	buf = append(buf, payload...)

	_, err := kernel.Write(buf)
	require.NoError(t, err)
}

func recvReply(t *testing.T, kernel *os.File) (fusekernel.OutHeader, []byte) {
	t.Helper()

	kernel.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 4096)
	n, err := kernel.Read(buf)
	require.NoError(t, err)

	var out fusekernel.OutHeader
	require.GreaterOrEqual(t, n, int(unsafe.Sizeof(out)))
	out = *(*fusekernel.OutHeader)(unsafe.Pointer(&buf[0]))
	return out, buf[unsafe.Sizeof(out):n]
}

// TestServeHandshakeLookupAndShutdown exercises a full Session.Serve run
// against hellofs: INIT handshake, a LOOKUP miss, a LOOKUP hit, and a
// DESTROY that cleanly unwinds Serve.
func TestServeHandshakeLookupAndShutdown(t *testing.T) {
	kernel, dev := newFuseSocketPair(t)

	conn := newConnection(dev, fusekernel.MinReadBuffer)
	s := NewSession(conn, &MountConfig{Mode: DispatchSingleThreaded})
	fs := hellofs.New()

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(fs) }()

	initIn := fusekernel.InitIn{
		Major:        fusekernel.ProtoVersionMaxMajor,
		Minor:        fusekernel.ProtoVersionMaxMinor,
		MaxReadahead: 1 << 16,
	}
	sendRequest(t, kernel, fusekernel.OpInit, 1, 0, unsafe.Slice((*byte)(unsafe.Pointer(&initIn)), unsafe.Sizeof(initIn)))

	initOut, _ := recvReply(t, kernel)
	assert.Zero(t, initOut.Error)
	assert.EqualValues(t, 1, initOut.Unique)

	missing := append([]byte("does-not-exist"), 0)
	sendRequest(t, kernel, fusekernel.OpLookup, 2, uint64(fuseops.RootInodeID), missing)

	lookupMiss, _ := recvReply(t, kernel)
	assert.EqualValues(t, -int32(unix.ENOENT), lookupMiss.Error)
	assert.EqualValues(t, 2, lookupMiss.Unique)

	found := append([]byte("hello"), 0)
	sendRequest(t, kernel, fusekernel.OpLookup, 3, uint64(fuseops.RootInodeID), found)

	lookupHit, body := recvReply(t, kernel)
	assert.Zero(t, lookupHit.Error)
	assert.NotEmpty(t, body)

	sendRequest(t, kernel, fusekernel.OpDestroy, 4, 0, nil)
	destroyReply, _ := recvReply(t, kernel)
	assert.Zero(t, destroyReply.Error)

	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after DESTROY")
	}
	assert.Equal(t, stateDestroyed, s.getState())
}
