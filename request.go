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
	"context"
	"fmt"
	"sync/atomic"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

// Request is the borrowed view over one decoded frame handed to filesystem
// callbacks. It implements fuseutil.Responder, so a *Request can be passed
// directly to fuseutil.Dispatch. Exactly one of Reply/ReplyError may be
// called; a second call panics.
type Request struct {
	session *Session
	ctx     context.Context
	unique  uint64
	opcode  fusekernel.Opcode
	conn    *Connection // writer this request's reply goes out on

	replied int32 // atomic; 0 = not yet replied, 1 = replied
}

// Context returns the context bound to this request's lifetime; it is
// canceled if the kernel sends a matching INTERRUPT while the request is
// in flight.
func (r *Request) Context() context.Context { return r.ctx }

// Reply sends payload as a successful response.
func (r *Request) Reply(payload atomicbytes.AtomicBytes) {
	r.markReplied()
	r.session.finishOp(r.opcode, r.unique)
	r.session.writeReplyTo(r.conn, r.unique, r.opcode, 0, payload)
}

// ReplyError sends err's errno as a failed response with no payload. A nil
// err is equivalent to Reply(atomicbytes.Unit{}).
func (r *Request) ReplyError(err error) {
	r.markReplied()
	r.session.finishOp(r.opcode, r.unique)
	r.session.writeReplyTo(r.conn, r.unique, r.opcode, errnoOf(err), atomicbytes.Unit{})
}

func (r *Request) markReplied() {
	if !atomic.CompareAndSwapInt32(&r.replied, 0, 1) {
		panic(fmt.Sprintf("fuse: double reply to request %#x (%s)", r.unique, r.opcode))
	}
}

// Unique returns the kernel-assigned request identifier, for callers that
// need to correlate logging or metrics across a request's lifetime.
func (r *Request) Unique() uint64 { return r.unique }
