package fuse

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func TestInvalInodeSendsNotifyFrame(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	require.NoError(t, s.InvalInode(fuseops.InodeID(42), 0, -1))

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, 0, out.Unique)
	assert.EqualValues(t, -int32(fusekernel.NotifyInvalInode), out.Error)

	var got fusekernel.NotifyInvalInodeOut
	require.GreaterOrEqual(t, len(body), int(unsafe.Sizeof(got)))
	got = *(*fusekernel.NotifyInvalInodeOut)(unsafe.Pointer(&body[0]))
	assert.EqualValues(t, 42, got.Ino)
}

func TestInvalEntryAppendsNulTerminatedName(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	require.NoError(t, s.InvalEntry(fuseops.InodeID(7), "child"))

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, -int32(fusekernel.NotifyInvalEntry), out.Error)

	fixed := int(unsafe.Sizeof(fusekernel.NotifyInvalEntryOut{}))
	require.Greater(t, len(body), fixed)
	name := body[fixed:]
	assert.Equal(t, "child\x00", string(name))
}

func TestRetrieveTracksPendingUntilReply(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	unique, err := s.Retrieve(fuseops.InodeID(1), 0, 4096)
	require.NoError(t, err)
	assert.NotZero(t, unique)

	s.notifyMu.Lock()
	_, pending := s.pending[unique]
	s.notifyMu.Unlock()
	assert.True(t, pending)

	s.resolveNotification(unique)

	s.notifyMu.Lock()
	_, stillPending := s.pending[unique]
	s.notifyMu.Unlock()
	assert.False(t, stillPending)

	_, _ = readOutHeader(t, r) // drain the RETRIEVE frame itself
}

func TestPollWakeupSendsNotifyFrame(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	require.NoError(t, s.PollWakeup(99))

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, -int32(fusekernel.NotifyPoll), out.Error)

	var got fusekernel.NotifyPollWakeupOut
	require.GreaterOrEqual(t, len(body), int(unsafe.Sizeof(got)))
	got = *(*fusekernel.NotifyPollWakeupOut)(unsafe.Pointer(&body[0]))
	assert.EqualValues(t, 99, got.Kh)
}
