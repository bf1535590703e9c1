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
	"net"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/masnagam/gofuse/fuseutil"
	"github.com/masnagam/gofuse/internal/fusekernel"
)

// ErrExternallyManagedMountPoint is returned by Unmount when dir looks like
// a /dev/fd/N mountpoint handed to us by a wrapper process that owns its
// lifecycle, so fusermount -u failing there isn't necessarily fatal.
var ErrExternallyManagedMountPoint = errors.New("fuse: externally managed mountpoint")

// MountedFileSystem is the handle returned by Mount: the mountpoint plus a
// way to wait for it to come unmounted.
type MountedFileSystem struct {
	dir string

	session *Session

	joinStatus          error
	joinStatusAvailable chan struct{}
}

// Dir returns the directory the file system is mounted on.
func (mfs *MountedFileSystem) Dir() string { return mfs.dir }

// Session returns the Session serving this mount, for callers that want to
// send notifications or call Shutdown directly.
func (mfs *MountedFileSystem) Session() *Session { return mfs.session }

// Join blocks until the file system has been unmounted, returning whatever
// error Serve returned. It may be called multiple times.
func (mfs *MountedFileSystem) Join(ctx context.Context) error {
	select {
	case <-mfs.joinStatusAvailable:
		return mfs.joinStatus
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mount opens a FUSE connection on dir and begins serving fs on it in the
// background, returning once the connection is open (not once the
// handshake with the kernel has completed; that happens as part of
// Serve). Call Join to block until the file system is unmounted.
//
// Obtaining the /dev/fuse descriptor is privileged: the
// normal path execs the setuid fusermount (or fusermount3) helper and
// receives the descriptor back over a socketpair via SCM_RIGHTS. A process
// already running as root skips the helper and opens /dev/fuse plus
// mount(2) directly.
func Mount(dir string, fs fuseutil.FileSystem, cfg *MountConfig) (*MountedFileSystem, error) {
	if cfg == nil {
		cfg = &MountConfig{}
	}

	dev, err := openDevFuse(dir, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("fuse: mount %s: %w", dir, err)
	}

	conn := newConnection(dev, fusekernel.MinReadBuffer)
	session := NewSession(conn, cfg)

	mfs := &MountedFileSystem{
		dir:                 dir,
		session:             session,
		joinStatusAvailable: make(chan struct{}),
	}

	go func() {
		mfs.joinStatus = session.Serve(fs)
		close(mfs.joinStatusAvailable)
	}()

	return mfs, nil
}

// openDevFuse obtains the kernel /dev/fuse descriptor for dir, preferring
// the unprivileged fusermount dance and falling back to a direct open plus
// mount(2) when running as root (e.g. inside a container that has no
// fusermount installed).
func openDevFuse(dir, options string) (*os.File, error) {
	if _, err := findFusermount(); err == nil {
		return dialMountHelper(dir, options)
	}
	if os.Geteuid() != 0 {
		return nil, errors.New("fuse: no fusermount available and not running as root")
	}
	return mountDirect(dir, options)
}

// mountDirect opens /dev/fuse and calls mount(2) directly, bypassing the
// setuid helper. Only usable by a privileged caller.
func mountDirect(dir, options string) (*os.File, error) {
	dev, err := os.OpenFile("/dev/fuse", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/fuse: %w", err)
	}

	data := fmt.Sprintf("fd=%d,rootmode=40000,user_id=%d,group_id=%d", dev.Fd(), os.Getuid(), os.Getgid())
	if options != "" {
		data += "," + options
	}
	if err := unix.Mount("fuse", dir, "fuse", 0, data); err != nil {
		dev.Close()
		return nil, fmt.Errorf("mount(2): %w", err)
	}
	return dev, nil
}

// dialMountHelper obtains the kernel /dev/fuse descriptor for dir by
// exec'ing the fusermount helper over a freshly created socketpair and
// receiving the fd back via an SCM_RIGHTS control message, mirroring the
// real fusermount(1) protocol. options is a comma-separated mount option
// string (e.g. "ro,allow_other"); it is passed through untouched.
func dialMountHelper(dir, options string) (*os.File, error) {
	helper, err := findFusermount()
	if err != nil {
		return nil, err
	}

	local, remote, err := socketpair()
	if err != nil {
		return nil, fmt.Errorf("fuse: socketpair: %w", err)
	}
	defer remote.Close()
	defer local.Close()

	args := []string{"-o", options, dir}
	cmd := exec.Command(helper, args...)
	cmd.Env = append(os.Environ(), "_FUSE_COMMFD=3")
	cmd.ExtraFiles = []*os.File{remote}
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("fuse: exec %s: %w", helper, err)
	}

	fd, err := receiveDevFuseFD(local)
	if err != nil {
		return nil, fmt.Errorf("fuse: receiving /dev/fuse fd: %w", err)
	}
	return os.NewFile(uintptr(fd), "/dev/fuse"), nil
}

// socketpair returns a connected pair of SOCK_STREAM Unix domain sockets,
// the local end to keep and the remote end to hand to the mount helper as
// fd 3 (_FUSE_COMMFD).
func socketpair() (local, remote *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, err
	}
	return os.NewFile(uintptr(fds[0]), "fuse-commfd-local"),
		os.NewFile(uintptr(fds[1]), "fuse-commfd-remote"), nil
}

// receiveDevFuseFD reads fusermount's single reply byte plus its
// SCM_RIGHTS-attached file descriptor off conn. fusermount writes one byte
// of status before sending the descriptor; a nonzero byte means it
// declined to mount and no fd follows.
func receiveDevFuseFD(conn *os.File) (int, error) {
	uc, err := net.FileConn(conn)
	if err != nil {
		return -1, err
	}
	defer uc.Close()
	unixConn, ok := uc.(*net.UnixConn)
	if !ok {
		return -1, errors.New("fuse: commfd is not a unix socket")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return -1, err
	}

	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	var n, oobn int
	var recvErr error
	if ctrlErr := raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(fd), buf, oob, 0)
		return true
	}); ctrlErr != nil {
		return -1, ctrlErr
	}
	if recvErr != nil {
		return -1, fmt.Errorf("recvmsg: %w", recvErr)
	}
	if n < 1 || buf[0] != 0 {
		return -1, fmt.Errorf("fusermount declined the mount (status %d)", buf[0])
	}
	if oobn == 0 {
		return -1, errors.New("fusermount sent no descriptor")
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, err
	}
	for _, scm := range scms {
		fds, err := unix.ParseUnixRights(&scm)
		if err == nil && len(fds) > 0 {
			return fds[0], nil
		}
	}
	return -1, errors.New("fusermount sent a control message with no rights")
}

func findFusermount() (string, error) {
	for _, name := range []string{"fusermount3", "fusermount"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("fuse: no fusermount or fusermount3 in PATH")
}

// Unmount invokes the mount helper's -u flag against dir. It is the
// counterpart to the fusermount dialog in dialMountHelper: unmounting,
// unlike mounting, doesn't need the fd handshake, since the helper talks
// directly to the kernel's mount table.
func Unmount(dir string) error {
	helper, err := findFusermount()
	if err != nil {
		return err
	}
	cmd := exec.Command(helper, "-u", dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.HasPrefix(dir, "/dev/fd/") {
			return fmt.Errorf("%w: %s", ErrExternallyManagedMountPoint, err)
		}
		if len(output) > 0 {
			return fmt.Errorf("%v: %s", err, strings.TrimRight(string(output), "\n"))
		}
		return err
	}
	return nil
}
