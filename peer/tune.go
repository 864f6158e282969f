//go:build unix

package peer

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nimbusact/actorcore/internal/rtlog"
)

// tuneTCP disables Nagle's algorithm and enables TCP keepalive on conn's
// raw socket, the way a low-latency actor-mailbox transport should: a
// peer session carries many small, latency-sensitive frames rather than
// bulk transfer, so batching writes to fill a segment is a net loss.
// Grounded on the raw-fd tuning pattern in
// SeleniaProject-Orizon/internal/runtime/asyncio's pollers, which reach
// syscall.RawConn the same way (SyscallConn) before calling into
// golang.org/x/sys/unix. Best-effort: failures are logged, never fatal,
// since a peer connection is still usable without the tuning.
func tuneTCP(conn net.Conn) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return
	}
	var sockErr error
	err = rc.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
			sockErr = e
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
	if err != nil || sockErr != nil {
		rtlog.Warnf("peer: socket tuning skipped for %s: %v", conn.RemoteAddr(), firstNonNil(err, sockErr))
	}
}

func firstNonNil(a, b error) error {
	if a != nil {
		return a
	}
	return b
}
