package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func newTestRequest(t *testing.T, s *Session, opcode fusekernel.Opcode, unique uint64) *Request {
	t.Helper()
	return s.newRequest(fuseops.Header{Opcode: opcode, Unique: unique}, s.conn)
}

func TestRequestReplyThenReplyErrorPanics(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	req := newTestRequest(t, s, fusekernel.OpGetattr, 1)
	req.Reply(atomicbytes.Unit{})

	assert.Panics(t, func() {
		req.ReplyError(nil)
	})
}

func TestRequestDoubleReplyPanics(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	req := newTestRequest(t, s, fusekernel.OpGetattr, 2)
	req.Reply(atomicbytes.Unit{})

	assert.Panics(t, func() {
		req.Reply(atomicbytes.Unit{})
	})
}

func TestRequestReplyClearsCancelFunc(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	req := newTestRequest(t, s, fusekernel.OpGetattr, 3)

	s.mu.Lock()
	_, tracked := s.cancelFuncs[3]
	s.mu.Unlock()
	assert.True(t, tracked, "beginOp should have recorded a cancel func")

	req.Reply(atomicbytes.Unit{})

	s.mu.Lock()
	_, stillTracked := s.cancelFuncs[3]
	s.mu.Unlock()
	assert.False(t, stillTracked, "finishOp should have removed the cancel func")
}

func TestRequestForgetSkipsCancelBookkeeping(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	req := newTestRequest(t, s, fusekernel.OpForget, 4)

	s.mu.Lock()
	_, tracked := s.cancelFuncs[4]
	s.mu.Unlock()
	assert.False(t, tracked, "FORGET must not be tracked for interruption")

	assert.NotPanics(t, func() {
		req.Reply(atomicbytes.Unit{})
	})
}
