//go:build !unix

package peer

import "net"

// tuneTCP is a no-op on non-unix platforms; golang.org/x/sys/unix has no
// portable equivalent for the raw socket options tune.go sets.
func tuneTCP(net.Conn) {}
