//go:build linux

package gwserver

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/prga/knotgw/pkg/dispatch"
	"github.com/prga/knotgw/pkg/session"
)

// peerCredentialsOf returns a dispatch.PeerCredentials bound to conn,
// resolving the connecting process's pid via SO_PEERCRED, the Unix
// equivalent of the original gateway's getsockopt(SO_PEERCRED) call at
// REGISTER_REQ time.
func peerCredentialsOf(conn net.Conn) dispatch.PeerCredentials {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return func(session.Handle) (int32, error) { return session.NoPeerPID, nil }
	}

	return func(session.Handle) (int32, error) {
		raw, err := uc.SyscallConn()
		if err != nil {
			return session.NoPeerPID, err
		}

		var ucred *unix.Ucred
		var sockErr error
		ctrlErr := raw.Control(func(fd uintptr) {
			ucred, sockErr = unix.GetsockoptUcred(int(fd), syscall.SOL_SOCKET, unix.SO_PEERCRED)
		})
		if ctrlErr != nil {
			return session.NoPeerPID, ctrlErr
		}
		if sockErr != nil {
			return session.NoPeerPID, sockErr
		}
		return ucred.Pid, nil
	}
}
