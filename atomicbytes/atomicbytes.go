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

// Package atomicbytes models a reply payload as a finite, enumerable
// sequence of borrowed byte slices that must reach the kernel in exactly
// one vectored write(2). It is the Go counterpart of the AtomicBytes trait
// that the Rust implementation this library's protocol layer is modeled on
// uses for the same purpose.
package atomicbytes

// AtomicBytes is a value that can be decomposed into a fixed sequence of
// non-empty byte chunks, all of which must be written in a single syscall.
//
// Implementations must guarantee that the number of Put calls performed by
// Fill equals Count, and that the sum of the lengths of the slices passed
// to Put equals Size.
type AtomicBytes interface {
	// Size returns the total number of bytes across all chunks.
	Size() int

	// Count returns the number of non-empty chunks Fill will enumerate.
	Count() int

	// Fill visits each chunk in emission order, calling sink.Put with a
	// slice borrowed from this value. The borrow is valid only for the
	// caller's current frame.
	Fill(sink Sink)
}

// Sink receives the chunks of an AtomicBytes value during Fill.
type Sink interface {
	Put(chunk []byte)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(chunk []byte)

// Put implements Sink.
func (f SinkFunc) Put(chunk []byte) { f(chunk) }

// Collect walks v and returns a plain slice of its chunks. Useful in tests
// and for callers that don't want to implement Sink themselves.
func Collect(v AtomicBytes) [][]byte {
	var out [][]byte
	v.Fill(SinkFunc(func(chunk []byte) {
		out = append(out, chunk)
	}))
	return out
}
