package fuse

import (
	"context"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func newTestSession(t *testing.T) (*Session, *os.File) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	conn := newConnection(w, fusekernel.MinReadBuffer)
	s := NewSession(conn, nil)
	return s, r
}

func readOutHeader(t *testing.T, r *os.File) (fusekernel.OutHeader, []byte) {
	t.Helper()

	buf := make([]byte, 4096)
	n, err := r.Read(buf)
	require.NoError(t, err)

	var out fusekernel.OutHeader
	require.GreaterOrEqual(t, n, int(unsafe.Sizeof(out)))
	out = *(*fusekernel.OutHeader)(unsafe.Pointer(&buf[0]))
	return out, buf[unsafe.Sizeof(out):n]
}

func TestWriteReplySuccessCarriesPayload(t *testing.T) {
	s, r := newTestSession(t)

	payload := atomicbytes.Bytes([]byte("hello"))
	s.writeReply(7, fusekernel.OpRead, 0, payload)

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, 0, out.Error)
	assert.EqualValues(t, 7, out.Unique)
	assert.Equal(t, "hello", string(body))
	assert.EqualValues(t, int(unsafe.Sizeof(out))+len("hello"), out.Len)
}

func TestWriteReplyErrorForcesZeroLengthPayload(t *testing.T) {
	s, r := newTestSession(t)

	// Even though a non-empty payload is passed, a nonzero errno must
	// force it to be dropped: the reply-atomicity invariant disallows
	// sending both an error and a body.
	payload := atomicbytes.Bytes([]byte("this must not reach the kernel"))
	s.writeReply(9, fusekernel.OpLookup, -int32(2) /* ENOENT */, payload)

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, -2, out.Error)
	assert.EqualValues(t, 9, out.Unique)
	assert.Empty(t, body)
	assert.EqualValues(t, unsafe.Sizeof(out), out.Len)
}

func TestHandshakeReturnsCleanlyOnKernelDisconnect(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, w.Close()) // kernel hung up before sending INIT

	conn := newConnection(r, fusekernel.MinReadBuffer)
	s := NewSession(conn, nil)

	err = s.handshake()
	assert.NoError(t, err, "a disconnect before INIT is a clean shutdown, not an error")
	assert.Equal(t, stateDestroyed, s.getState())
}

func TestServeReturnsCleanlyWhenHandshakeNeverCompletes(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	conn := newConnection(r, fusekernel.MinReadBuffer)
	s := NewSession(conn, nil)

	err = s.Serve(nil)
	assert.NoError(t, err)
	assert.Equal(t, stateDestroyed, s.getState())
}

func TestShutdownDrainsInflightBeforeClosing(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	s.inflightWG.Add(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := s.Shutdown(context.Background())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
		t.Fatal("Shutdown returned before inflight request finished")
	default:
	}

	s.inflightWG.Done()
	<-done
	assert.Equal(t, stateDestroyed, s.getState())
}
