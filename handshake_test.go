package fuse

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func TestNegotiateIntersectsCapabilityFlags(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	s.cfg.Kernel.EnableBigWrites = true
	s.cfg.Kernel.EnableWritebackCache = false

	op := &fuseops.InitOp{
		Kernel:       fusekernel.Protocol{Major: 7, Minor: 31},
		MaxReadahead: 1 << 16,
		Flags:        fusekernel.InitBigWrites | fusekernel.InitWritebackCache | fusekernel.InitAsyncRead,
	}

	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	max := fusekernel.Protocol{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}

	done, err := s.negotiate(op, min, max)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, stateRunning, s.getState())

	_, body := readOutHeader(t, r)
	var out fusekernel.InitOut
	require.GreaterOrEqual(t, len(body), int(unsafe.Sizeof(out)))
	out = *(*fusekernel.InitOut)(unsafe.Pointer(&body[0]))

	negotiated := fusekernel.InitFlags(out.Flags)
	assert.NotZero(t, negotiated&fusekernel.InitBigWrites, "kernel and config both offered BigWrites")
	assert.Zero(t, negotiated&fusekernel.InitWritebackCache, "config did not offer WritebackCache")
	assert.Zero(t, negotiated&fusekernel.InitAsyncRead, "config did not offer AsyncRead")
}

func TestNegotiatePinsToOlderKernelProtocol(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	op := &fuseops.InitOp{Kernel: fusekernel.Protocol{Major: 7, Minor: 25}}
	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	max := fusekernel.Protocol{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}

	done, err := s.negotiate(op, min, max)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, fusekernel.Protocol{Major: 7, Minor: 25}, s.Protocol())
}

func TestNegotiateRetriesOnOlderMajor(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	op := &fuseops.InitOp{Kernel: fusekernel.Protocol{Major: 6, Minor: 0}}
	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	max := fusekernel.Protocol{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}

	done, err := s.negotiate(op, min, max)
	require.NoError(t, err)
	assert.False(t, done, "an older major should stay Initializing, awaiting a retry")
	assert.NotEqual(t, stateRunning, s.getState())

	out, body := readOutHeader(t, r)
	assert.Zero(t, out.Error, "retry is signalled by echoing our version, not an error reply")
	var initOut fusekernel.InitOut
	require.GreaterOrEqual(t, len(body), int(unsafe.Sizeof(initOut)))
	initOut = *(*fusekernel.InitOut)(unsafe.Pointer(&body[0]))
	assert.Equal(t, min.Major, initOut.Major)
	assert.Equal(t, min.Minor, initOut.Minor)
}

func TestNegotiateRejectsOlderMinorOnSameMajor(t *testing.T) {
	s, r := newTestSession(t)
	defer r.Close()

	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	max := fusekernel.Protocol{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}

	// Same major as our floor, but an older minor: reject outright with
	// ENOSYS rather than retrying like an older major would, and rather
	// than silently accepting a reduced capability set.
	op := &fuseops.InitOp{Kernel: fusekernel.Protocol{Major: min.Major, Minor: min.Minor - 1}}

	done, err := s.negotiate(op, min, max)
	require.NoError(t, err)
	assert.False(t, done)
	assert.NotEqual(t, stateRunning, s.getState())

	out, body := readOutHeader(t, r)
	assert.EqualValues(t, -int32(unix.ENOSYS), out.Error)
	assert.Empty(t, body, "a rejected INIT carries no payload")
}
