package atomicbytes_test

import (
	"testing"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/stretchr/testify/assert"
)

type countingSink struct {
	puts int
	size int
}

func (s *countingSink) Put(chunk []byte) {
	s.puts++
	s.size += len(chunk)
}

func checkCountLaw(t *testing.T, v atomicbytes.AtomicBytes) {
	t.Helper()
	sink := &countingSink{}
	v.Fill(sink)
	assert.Equal(t, v.Count(), sink.puts, "Count() must equal number of Put calls")
	assert.Equal(t, v.Size(), sink.size, "Size() must equal summed chunk lengths")
}

func TestCountLaw(t *testing.T) {
	cases := map[string]atomicbytes.AtomicBytes{
		"empty bytes":    atomicbytes.Bytes(nil),
		"bytes":          atomicbytes.Bytes("hello"),
		"empty string":   atomicbytes.String(""),
		"string":         atomicbytes.String("world"),
		"unit":           atomicbytes.Unit{},
		"empty seq":      atomicbytes.Seq{},
		"seq":            atomicbytes.Seq{atomicbytes.Bytes("a"), atomicbytes.String("bc"), atomicbytes.Unit{}},
		"nested seq":     atomicbytes.Seq{atomicbytes.Seq{atomicbytes.Bytes("x")}, atomicbytes.Bytes("yz")},
		"none":           atomicbytes.None,
		"some":           atomicbytes.Some(atomicbytes.Bytes("present")),
		"some of empty":  atomicbytes.Some(atomicbytes.Bytes(nil)),
		"either left":    atomicbytes.LeftOf(atomicbytes.Bytes("l")),
		"either right":   atomicbytes.RightOf(atomicbytes.Bytes("r")),
	}

	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			checkCountLaw(t, v)
		})
	}
}

func TestSeqOrderPreserved(t *testing.T) {
	seq := atomicbytes.Seq{
		atomicbytes.Bytes("1"),
		atomicbytes.Bytes("2"),
		atomicbytes.Bytes("3"),
	}
	var got []string
	seq.Fill(atomicbytes.SinkFunc(func(chunk []byte) {
		got = append(got, string(chunk))
	}))
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestOptionalAbsent(t *testing.T) {
	assert.Equal(t, 0, atomicbytes.None.Size())
	assert.Equal(t, 0, atomicbytes.None.Count())
	assert.Empty(t, atomicbytes.Collect(atomicbytes.None))
}

func TestPointerDelegation(t *testing.T) {
	b := atomicbytes.Bytes("abc")
	var v atomicbytes.AtomicBytes = &b
	assert.Equal(t, 3, v.Size())
	assert.Equal(t, 1, v.Count())
}
