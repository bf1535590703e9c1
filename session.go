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
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/atomicbytes"
	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/fuseutil"
	"github.com/masnagam/gofuse/internal/buffer"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

type sessionState int32

const (
	stateUninitialized sessionState = iota
	stateInitializing
	stateRunning
	stateDestroying
	stateDestroyed
)

// Session owns the handshake state machine, per-request cancellation
// bookkeeping, the notification registry, and reply emission. Connection
// underneath it is just the device.
type Session struct {
	conn   *Connection
	cfg    *MountConfig
	logger Logger
	metr   *SessionMetrics

	protocol fusekernel.Protocol
	maxWrite uint32

	state int32 // sessionState, accessed atomically

	mu          sync.Mutex
	cancelFuncs map[uint64]context.CancelFunc // GUARDED_BY(mu)

	// inflightWG tracks requests handed to fuseutil.Dispatch, in both
	// dispatch modes, so Shutdown can wait for them to finish independent
	// of whatever local errgroup serveConcurrent is using.
	inflightWG sync.WaitGroup

	notifyMu sync.Mutex
	notifyNext uint64
	pending    map[uint64]struct{} // GUARDED_BY(notifyMu): notification-unique -> pending

	clonesMu sync.Mutex
	clones   []*Connection // GUARDED_BY(clonesMu): cloned writer fds opened by serveConcurrent
}

// NewSession wraps conn, ready to have its handshake driven by Serve.
func NewSession(conn *Connection, cfg *MountConfig) *Session {
	if cfg == nil {
		cfg = &MountConfig{}
	}
	conn.setReadTimeout(cfg.ReadTimeout)
	return &Session{
		conn:        conn,
		cfg:         cfg,
		logger:      cfg.logger(),
		metr:        cfg.metrics(),
		cancelFuncs: make(map[uint64]context.CancelFunc),
		pending:     make(map[uint64]struct{}),
	}
}

func (s *Session) getState() sessionState { return sessionState(atomic.LoadInt32(&s.state)) }
func (s *Session) setState(v sessionState) { atomic.StoreInt32(&s.state, int32(v)) }

// Protocol returns the negotiated wire protocol version; valid only after
// Serve has completed the handshake.
func (s *Session) Protocol() fusekernel.Protocol { return s.protocol }

// MaxWrite returns the negotiated maximum WRITE payload size.
func (s *Session) MaxWrite() uint32 { return s.maxWrite }

// Conn returns the underlying Connection, for callers that need a cloned
// writer fd (see Connection.tryClone) in the cooperative-concurrent
// dispatch mode.
func (s *Session) Conn() *Connection { return s.conn }

// Serve drives the handshake to completion, then reads and dispatches
// requests against fs until the kernel disconnects (ENODEV) or a DESTROY
// opcode is received. A clean shutdown returns nil; any other I/O error
// is returned to the caller.
func (s *Session) Serve(fs fuseutil.FileSystem) error {
	if err := s.handshake(); err != nil {
		return err
	}
	if s.getState() == stateDestroyed {
		return nil
	}

	var err error
	if s.cfg.Mode == DispatchConcurrent {
		err = s.serveConcurrent(fs)
	} else {
		err = s.serveSingleThreaded(fs)
	}

	s.notifyMu.Lock()
	for unique := range s.pending {
		delete(s.pending, unique)
	}
	s.notifyMu.Unlock()
	return err
}

func (s *Session) serveSingleThreaded(fs fuseutil.FileSystem) error {
	for {
		done, err := s.readAndDispatchOne(fs, func(work func(*Connection)) { work(s.conn) })
		if done {
			return err
		}
	}
}

// serveConcurrent dispatches requests to worker goroutines, each replying
// through its own cloned /dev/fuse fd (see Connection.tryClone) so the
// kernel serializes writers per fd instead of every worker contending on
// one Connection's writeMu. Kernels without FUSE_DEV_IOC_CLONE fall back
// to sharing conn, which still behaves correctly, just with less write
// parallelism.
func (s *Session) serveConcurrent(fs fuseutil.FileSystem) error {
	// The group's derived context is unused as a cancellation source:
	// requests are canceled individually via INTERRUPT (see beginOp). The
	// group still gives Serve a way to wait for in-flight work to drain.
	g := new(errgroup.Group)

	var writerPool sync.Pool
	writerPool.New = func() any {
		clone, err := s.conn.tryClone()
		if err != nil {
			s.logger.WithError(err).Warn("fuse: clone connection failed, sharing writer fd")
			return s.conn
		}
		s.clonesMu.Lock()
		s.clones = append(s.clones, clone)
		s.clonesMu.Unlock()
		return clone
	}

	for {
		done, err := s.readAndDispatchOne(fs, func(work func(*Connection)) {
			g.Go(func() error {
				w := writerPool.Get().(*Connection)
				defer writerPool.Put(w)
				work(w)
				return nil
			})
		})
		if done {
			waitErr := g.Wait()
			if err == nil {
				err = waitErr
			}
			return err
		}
	}
}

// readAndDispatchOne reads one frame and either handles it inline
// (INTERRUPT, NOTIFY_REPLY, DESTROY) or hands it to run for dispatch.
// done is true once the serve loop should stop reading.
func (s *Session) readAndDispatchOne(fs fuseutil.FileSystem, run func(func(*Connection))) (done bool, err error) {
	inMsg, rerr := s.conn.read()
	if rerr != nil {
		if errors.Is(rerr, io.EOF) {
			s.setState(stateDestroyed)
			return true, nil
		}
		s.setState(stateDestroyed)
		return true, fmt.Errorf("fuse: read: %w", rerr)
	}

	op, derr := fuseops.Decode(inMsg, s.protocol)
	if derr != nil {
		s.logger.WithError(derr).Warn("fuse: decode error")
		h := inMsg.Header()
		s.writeReply(h.Unique, fusekernel.Opcode(h.Opcode), -int32(unix.EIO), atomicbytes.Unit{})
		s.conn.putMessage(inMsg)
		return false, nil
	}

	switch t := op.(type) {
	case *fuseops.InterruptOp:
		s.handleInterrupt(t.TargetUnique)
		s.conn.putMessage(inMsg)
		return false, nil

	case *fuseops.NotifyReplyOp:
		s.resolveNotification(t.RetrieveUnique)
		s.conn.putMessage(inMsg)
		return false, nil

	case *fuseops.DestroyOp:
		s.setState(stateDestroying)
		req := s.newRequest(op.Header(), s.conn)
		fs.Destroy(req.Context(), t)
		req.Reply(atomicbytes.Unit{})
		s.conn.putMessage(inMsg)
		s.setState(stateDestroyed)
		return true, nil

	default:
		s.inflightWG.Add(1)
		run(func(w *Connection) {
			defer s.inflightWG.Done()
			defer s.conn.putMessage(inMsg)
			req := s.newRequest(op.Header(), w)
			fuseutil.Dispatch(fs, req, op)
		})
		return false, nil
	}
}

func (s *Session) newRequest(h fuseops.Header, conn *Connection) *Request {
	ctx := s.beginOp(h.Opcode, h.Unique)
	return &Request{session: s, ctx: ctx, unique: h.Unique, opcode: h.Opcode, conn: conn}
}

// beginOp sets up a cancelable context for a newly dispatched request.
// FORGET carries no reply and its unique is immediately eligible for
// reuse on some kernels, so no cancel state is recorded for it (a
// Darwin/osxfuse quirk, kept here for symmetry even though Linux does not
// reuse unique this way).
func (s *Session) beginOp(opcode fusekernel.Opcode, unique uint64) context.Context {
	ctx := s.cfg.opContext()
	if opcode == fusekernel.OpForget {
		return ctx
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFuncs[unique] = cancel
	s.mu.Unlock()
	s.metr.RequestsInFlight.Inc()
	return ctx
}

func (s *Session) finishOp(opcode fusekernel.Opcode, unique uint64) {
	if opcode == fusekernel.OpForget {
		return
	}
	s.mu.Lock()
	cancel, ok := s.cancelFuncs[unique]
	if ok {
		delete(s.cancelFuncs, unique)
	}
	s.mu.Unlock()
	if ok {
		cancel()
		s.metr.RequestsInFlight.Dec()
	}
}

// handleInterrupt cancels the context of the request named by
// targetUnique, if it is still in flight. If the target has already been
// replied to, or was never dispatched, the interrupt is dropped silently.
func (s *Session) handleInterrupt(targetUnique uint64) {
	s.mu.Lock()
	cancel, ok := s.cancelFuncs[targetUnique]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// handshake drives the Session from Uninitialized to Running. Every
// non-INIT, non-DESTROY frame received before Running is answered ENOSYS
// and dropped.
func (s *Session) handshake() error {
	s.setState(stateInitializing)

	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	max := fusekernel.Protocol{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}

	for {
		inMsg, err := s.conn.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.setState(stateDestroyed)
				return nil
			}
			s.setState(stateDestroyed)
			return fmt.Errorf("fuse: read during handshake: %w", err)
		}

		h := inMsg.Header()
		op, derr := fuseops.Decode(inMsg, fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor})
		if derr != nil {
			s.writeReply(h.Unique, fusekernel.Opcode(h.Opcode), -int32(unix.EIO), atomicbytes.Unit{})
			s.conn.putMessage(inMsg)
			continue
		}

		switch t := op.(type) {
		case *fuseops.InitOp:
			done, herr := s.negotiate(t, min, max)
			s.conn.putMessage(inMsg)
			if herr != nil {
				return herr
			}
			if done {
				return nil
			}
			// Kernel major too old: we replied with our own version and
			// stay Initializing, waiting for a retry.
			continue

		case *fuseops.DestroyOp:
			s.writeReply(h.Unique, fusekernel.OpDestroy, 0, atomicbytes.Unit{})
			s.conn.putMessage(inMsg)
			s.setState(stateDestroyed)
			return nil

		default:
			s.writeReply(h.Unique, fusekernel.Opcode(h.Opcode), -int32(unix.ENOSYS), atomicbytes.Unit{})
			s.conn.putMessage(inMsg)
			continue
		}
	}
}

// negotiate processes one INIT frame. done is true once the handshake has
// completed and the session has transitioned to Running.
func (s *Session) negotiate(op *fuseops.InitOp, min, max fusekernel.Protocol) (done bool, err error) {
	if op.Kernel.Major < min.Major {
		// Older major: ask the kernel to retry with an older protocol by
		// echoing only our advertised major/minor and staying Initializing.
		out := &fusekernel.InitOut{Major: min.Major, Minor: min.Minor}
		s.writeReply(op.Header().Unique, fusekernel.OpInit, 0, structAsBytes(out))
		return false, nil
	}

	if op.Kernel.Major == min.Major && op.Kernel.Minor < min.Minor {
		// Same major, but older than the library's deliberately chosen
		// minor floor: reject outright rather than retry or silently
		// negotiate down to a reduced capability set.
		s.writeReply(op.Header().Unique, fusekernel.OpInit, -int32(unix.ENOSYS), atomicbytes.Unit{})
		return false, nil
	}

	s.protocol = max
	if op.Kernel.LT(max) {
		s.protocol = op.Kernel
	}

	kernelFlags := op.Flags
	cfgFlags := s.cfg.Kernel.wireFlags()
	negotiated := kernelFlags & cfgFlags

	maxReadahead := op.MaxReadahead
	if s.cfg.Kernel.MaxReadahead != 0 && maxReadahead > s.cfg.Kernel.MaxReadahead {
		maxReadahead = s.cfg.Kernel.MaxReadahead
	}

	maxWrite := s.cfg.Kernel.MaxWrite
	if maxWrite == 0 {
		maxWrite = 1 << 20
	}
	s.maxWrite = maxWrite

	out := &fusekernel.InitOut{
		Major:               s.protocol.Major,
		Minor:               s.protocol.Minor,
		MaxReadahead:        maxReadahead,
		Flags:               uint32(negotiated),
		MaxBackground:       s.cfg.Kernel.MaxBackground,
		CongestionThreshold: s.cfg.Kernel.CongestionThreshold,
		MaxWrite:            maxWrite,
		TimeGran:            s.cfg.Kernel.TimeGran,
	}
	if negotiated&fusekernel.InitMaxPages != 0 {
		out.MaxPages = 256
	}

	s.conn.resizeBuffers(bufferSizeFor(maxWrite))
	s.metr.CongestionThreshold.Set(float64(out.CongestionThreshold))

	s.writeReply(op.Header().Unique, fusekernel.OpInit, 0, structAsBytes(out))
	s.setState(stateRunning)

	s.logger.WithFields(map[string]interface{}{
		"major": s.protocol.Major, "minor": s.protocol.Minor, "flags": negotiated,
	}).Info("fuse: handshake complete")

	return true, nil
}

// bufferSizeFor computes the read buffer size large enough for the header,
// a WRITE payload header, and the negotiated max_write bytes of data.
func bufferSizeFor(maxWrite uint32) int {
	size := buffer.HeaderSize + int(unsafe.Sizeof(fusekernel.WriteIn{})) + int(maxWrite)
	if size < fusekernel.MinReadBuffer {
		size = fusekernel.MinReadBuffer
	}
	return size
}

// structAsBytes views a fixed-size wire struct as a single-chunk
// AtomicBytes leaf, for the handful of replies (INIT, notifications) that
// don't go through a fuseops reply builder.
func structAsBytes[T any](v *T) atomicbytes.Bytes {
	return atomicbytes.Bytes(unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v)))
}

// writeReply assembles and sends one OutHeader+payload frame over the
// session's main connection. Used for the handshake and for decode-error
// replies, which have no per-worker writer of their own.
func (s *Session) writeReply(unique uint64, opcode fusekernel.Opcode, errno int32, payload atomicbytes.AtomicBytes) {
	s.writeReplyTo(s.conn, unique, opcode, errno, payload)
}

// writeReplyTo is writeReply generalized over the Connection a reply is
// written through, so that concurrent dispatch can reply via a cloned fd.
// errno != 0 forces a zero-length payload, per the reply-atomicity
// invariant.
func (s *Session) writeReplyTo(conn *Connection, unique uint64, opcode fusekernel.Opcode, errno int32, payload atomicbytes.AtomicBytes) {
	if errno != 0 {
		payload = atomicbytes.Unit{}
	}

	size := payload.Size()
	out := fusekernel.OutHeader{Len: uint32(16 + size), Error: errno, Unique: unique}

	chunks := make([][]byte, 0, 1+payload.Count())
	chunks = append(chunks, unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out)))
	payload.Fill(atomicbytes.SinkFunc(func(chunk []byte) {
		chunks = append(chunks, chunk)
	}))

	if err := conn.writeVectored(chunks); err != nil {
		s.logger.WithFields(requestFields(unique, opcode)).WithError(err).Error("fuse: write reply failed")
		return
	}

	s.metr.RepliesTotal.WithLabelValues(opcode.String()).Inc()
	if errno != 0 {
		s.logger.WithFields(requestFields(unique, opcode)).Debugf("fuse: reply errno=%d", errno)
	}
}

// Notifications. Each builds a frame with unique=0 and error holding the
// negative notification code.

// InvalInode asks the kernel to drop cached attributes and, if length >=
// 0, cached data for [off, off+length) of ino.
func (s *Session) InvalInode(ino fuseops.InodeID, off, length int64) error {
	out := fusekernel.NotifyInvalInodeOut{Ino: uint64(ino), Off: off, Length: length}
	return s.sendNotification(fusekernel.NotifyInvalInode, structAsBytes(&out))
}

// InvalEntry asks the kernel to drop a cached name-to-inode mapping.
func (s *Session) InvalEntry(parent fuseops.InodeID, name string) error {
	out := fusekernel.NotifyInvalEntryOut{Parent: uint64(parent), Namelen: uint32(len(name))}
	return s.sendNotification(fusekernel.NotifyInvalEntry, atomicbytes.Seq{structAsBytes(&out), nulTerminated(name)})
}

// Delete tells the kernel that child was unlinked from parent out of
// band, invalidating both its dentry and inode caches.
func (s *Session) Delete(parent, child fuseops.InodeID, name string) error {
	out := fusekernel.NotifyDeleteOut{Parent: uint64(parent), Child: uint64(child), Namelen: uint32(len(name))}
	return s.sendNotification(fusekernel.NotifyDelete, atomicbytes.Seq{structAsBytes(&out), nulTerminated(name)})
}

// Store pushes data into the kernel's page cache for ino at off, out of
// band (e.g. after a write made by another client of a shared backend).
func (s *Session) Store(ino fuseops.InodeID, off uint64, data []byte) error {
	out := fusekernel.NotifyStoreOut{Nodeid: uint64(ino), Offset: off, Size: uint32(len(data))}
	return s.sendNotification(fusekernel.NotifyStore, atomicbytes.Seq{structAsBytes(&out), atomicbytes.Bytes(data)})
}

// Retrieve asks the kernel to read back size bytes of its cached data for
// ino at off. It returns a notification-unique that will appear on the
// NotifyReplyOp the kernel eventually sends back; the registry entry is
// removed when that reply arrives or the session is destroyed.
func (s *Session) Retrieve(ino fuseops.InodeID, off uint64, size uint32) (unique uint64, err error) {
	unique = s.nextNotificationUnique()

	s.notifyMu.Lock()
	s.pending[unique] = struct{}{}
	s.notifyMu.Unlock()
	s.metr.NotificationsPending.Inc()

	out := fusekernel.NotifyRetrieveOut{NotifyUnique: unique, Nodeid: uint64(ino), Offset: off, Size: size}
	if err := s.sendNotification(fusekernel.NotifyRetrieve, structAsBytes(&out)); err != nil {
		s.resolveNotification(unique)
		return 0, err
	}
	return unique, nil
}

// PollWakeup tells the kernel a file it registered for polling via
// fuseops.PollOp.Kh is now ready for I/O.
func (s *Session) PollWakeup(kh uint64) error {
	out := fusekernel.NotifyPollWakeupOut{Kh: kh}
	return s.sendNotification(fusekernel.NotifyPoll, structAsBytes(&out))
}

func (s *Session) nextNotificationUnique() uint64 {
	return atomic.AddUint64(&s.notifyNext, 1)
}

func (s *Session) resolveNotification(unique uint64) {
	s.notifyMu.Lock()
	_, ok := s.pending[unique]
	delete(s.pending, unique)
	s.notifyMu.Unlock()
	if ok {
		s.metr.NotificationsPending.Dec()
	}
}

func (s *Session) sendNotification(code fusekernel.NotifyCode, payload atomicbytes.AtomicBytes) error {
	out := fusekernel.OutHeader{Len: uint32(16 + payload.Size()), Error: int32(-code), Unique: 0}
	chunks := make([][]byte, 0, 1+payload.Count())
	chunks = append(chunks, unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out)))
	payload.Fill(atomicbytes.SinkFunc(func(chunk []byte) { chunks = append(chunks, chunk) }))
	return s.conn.writeVectored(chunks)
}

func nulTerminated(name string) atomicbytes.Bytes {
	b := make([]byte, len(name)+1)
	copy(b, name)
	return atomicbytes.Bytes(b)
}

// Shutdown waits for in-flight requests to finish, up to ctx's deadline or
// DrainTimeout, then drops any outstanding notification registry entries
// and releases the underlying connection. Calling it concurrently with
// Serve makes Serve's read loop fail its next read once the descriptor is
// closed, unblocking it; calling it after Serve has already
// returned is also safe and simply releases what Serve left behind.
func (s *Session) Shutdown(ctx context.Context) error {
	s.setState(stateDestroying)

	drained := make(chan struct{})
	go func() {
		s.inflightWG.Wait()
		close(drained)
	}()

	timer := time.NewTimer(DrainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn("fuse: shutdown context done before requests drained")
	case <-timer.C:
		s.logger.Warn("fuse: shutdown drain timeout exceeded with requests still in flight")
	}

	s.notifyMu.Lock()
	for unique := range s.pending {
		delete(s.pending, unique)
	}
	s.notifyMu.Unlock()

	s.setState(stateDestroyed)

	s.clonesMu.Lock()
	clones := s.clones
	s.clones = nil
	s.clonesMu.Unlock()
	for _, c := range clones {
		if err := c.close(); err != nil {
			s.logger.WithError(err).Warn("fuse: closing cloned connection failed")
		}
	}

	return s.conn.close()
}

// DrainTimeout bounds how long Shutdown waits for in-flight requests
// before giving up and closing the connection anyway.
const DrainTimeout = 30 * time.Second
