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

package atomicbytes

// Seq concatenates a fixed, ordered sequence of AtomicBytes values in
// iteration order. It also serves as the zero-chunk Unit when empty, and
// as a composition that joins values without imposing an order of its
// own (order is whatever the caller built the slice in).
type Seq []AtomicBytes

func (s Seq) Size() int {
	total := 0
	for _, v := range s {
		total += v.Size()
	}
	return total
}

func (s Seq) Count() int {
	total := 0
	for _, v := range s {
		total += v.Count()
	}
	return total
}

func (s Seq) Fill(sink Sink) {
	for _, v := range s {
		v.Fill(sink)
	}
}

// Optional contributes the wrapped value's chunks if present, nothing
// otherwise. A nil Value behaves like a not-present Optional.
type Optional struct {
	Value AtomicBytes
}

func (o Optional) Size() int {
	if o.Value == nil {
		return 0
	}
	return o.Value.Size()
}

func (o Optional) Count() int {
	if o.Value == nil {
		return 0
	}
	return o.Value.Count()
}

func (o Optional) Fill(sink Sink) {
	if o.Value != nil {
		o.Value.Fill(sink)
	}
}

// Some wraps v as a present Optional.
func Some(v AtomicBytes) Optional { return Optional{Value: v} }

// None is the absent Optional.
var None = Optional{}

// Either dispatches to whichever of Left/Right is selected by UseLeft,
// implementing the two-variant sum composition rule.
type Either struct {
	Left, Right AtomicBytes
	UseLeft     bool
}

func (e Either) branch() AtomicBytes {
	if e.UseLeft {
		return e.Left
	}
	return e.Right
}

func (e Either) Size() int  { return e.branch().Size() }
func (e Either) Count() int { return e.branch().Count() }
func (e Either) Fill(sink Sink) { e.branch().Fill(sink) }

// LeftOf builds an Either selecting its left branch.
func LeftOf(v AtomicBytes) Either { return Either{Left: v, UseLeft: true} }

// RightOf builds an Either selecting its right branch.
func RightOf(v AtomicBytes) Either { return Either{Right: v, UseLeft: false} }
