package fuseops_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/internal/buffer"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

func asBytes[T any](v T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))
}

// buildMessage assembles a wire frame the way the kernel would: a
// length-correct InHeader followed by opcode, name, or data chunks.
func buildMessage(t *testing.T, opcode fusekernel.Opcode, unique uint64, nodeid uint64, chunks ...[]byte) *buffer.InMessage {
	t.Helper()

	total := buffer.HeaderSize
	for _, c := range chunks {
		total += len(c)
	}

	h := fusekernel.InHeader{
		Len:    uint32(total),
		Opcode: uint32(opcode),
		Unique: unique,
		Nodeid: nodeid,
	}

	var buf bytes.Buffer
	buf.Write(asBytes(h))
	for _, c := range chunks {
		buf.Write(c)
	}

	msg := buffer.NewInMessage(total)
	require.NoError(t, msg.Init(bytes.NewReader(buf.Bytes())))
	return msg
}

func nulName(s string) []byte {
	return append([]byte(s), 0)
}

func TestDecodeInit(t *testing.T) {
	in := fusekernel.InitIn{Major: 7, Minor: 31, MaxReadahead: 1 << 16, Flags: uint32(fusekernel.InitBigWrites)}
	msg := buildMessage(t, fusekernel.OpInit, 1, 0, asBytes(in))

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 23})
	require.NoError(t, err)

	initOp, ok := op.(*fuseops.InitOp)
	require.True(t, ok)
	assert.Equal(t, fusekernel.Protocol{Major: 7, Minor: 31}, initOp.Kernel)
	assert.Equal(t, uint32(1<<16), initOp.MaxReadahead)
	assert.Equal(t, fusekernel.InitBigWrites, initOp.Flags)
	assert.Equal(t, uint64(1), initOp.Header().Unique)
}

func TestDecodeLookup(t *testing.T) {
	msg := buildMessage(t, fusekernel.OpLookup, 42, 7, nulName("hello"))

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.NoError(t, err)

	lookup, ok := op.(*fuseops.LookupOp)
	require.True(t, ok)
	assert.Equal(t, "hello", string(lookup.Name))
	assert.Equal(t, fuseops.InodeID(7), lookup.Header().Nodeid)
	assert.Equal(t, uint64(42), lookup.Header().Unique)
}

func TestDecodeLookupMissingName(t *testing.T) {
	msg := buildMessage(t, fusekernel.OpLookup, 1, 1)

	_, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.Error(t, err)

	var decErr *fuseops.DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecodeWriteSplitsHeaderAndData(t *testing.T) {
	data := []byte("payload bytes")
	in := fusekernel.WriteIn{Fh: 3, Offset: 100, Size: uint32(len(data))}
	msg := buildMessage(t, fusekernel.OpWrite, 9, 2, asBytes(in), data)

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.NoError(t, err)

	w, ok := op.(*fuseops.WriteOp)
	require.True(t, ok)
	assert.Equal(t, fuseops.HandleID(3), w.Handle)
	assert.Equal(t, int64(100), w.Offset)
	assert.Equal(t, data, w.Data)
}

func TestDecodeWriteTruncatedData(t *testing.T) {
	in := fusekernel.WriteIn{Fh: 3, Offset: 0, Size: 100}
	msg := buildMessage(t, fusekernel.OpWrite, 9, 2, asBytes(in), []byte("short"))

	_, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	assert.Error(t, err)
}

func TestDecodeBatchForget(t *testing.T) {
	entries := []fusekernel.ForgetOne{{Nodeid: 5, Nlookup: 1}, {Nodeid: 6, Nlookup: 2}}
	in := fusekernel.BatchForgetIn{Count: uint32(len(entries))}

	var raw bytes.Buffer
	for _, e := range entries {
		raw.Write(asBytes(e))
	}

	msg := buildMessage(t, fusekernel.OpBatchForget, 1, 0, asBytes(in), raw.Bytes())

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.NoError(t, err)

	bf, ok := op.(*fuseops.BatchForgetOp)
	require.True(t, ok)
	require.Len(t, bf.Entries, 2)
	assert.Equal(t, uint64(5), bf.Entries[0].Nodeid)
	assert.Equal(t, uint64(6), bf.Entries[1].Nodeid)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	msg := buildMessage(t, fusekernel.Opcode(9999), 1, 0)

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.NoError(t, err)

	unknown, ok := op.(*fuseops.UnknownOp)
	require.True(t, ok)
	assert.Equal(t, uint32(9999), unknown.RawOpcode)
}

func TestDecodeInterrupt(t *testing.T) {
	in := fusekernel.InterruptIn{Unique: 123}
	msg := buildMessage(t, fusekernel.OpInterrupt, 1, 0, asBytes(in))

	op, err := fuseops.Decode(msg, fusekernel.Protocol{Major: 7, Minor: 31})
	require.NoError(t, err)

	ir, ok := op.(*fuseops.InterruptOp)
	require.True(t, ok)
	assert.Equal(t, uint64(123), ir.TargetUnique)
}
