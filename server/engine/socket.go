// listening socket creation
// only low level socket functional
package engine

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// Listen binds all local addresses on port and starts listening with the
// system maximum backlog. it tries a dual-stack IPv6 socket first and falls
// back to IPv4 when the host has no IPv6
func Listen(port string) (net.Listener, error) {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 0xffff {
		return nil, fmt.Errorf("invalid port %q", port)
	}

	fd, err := listenSocket(unix.AF_INET6, p)
	if err != nil {
		if fd, err = listenSocket(unix.AF_INET, p); err != nil {
			return nil, fmt.Errorf("listen on port %s: %w", port, err)
		}
	}

	// FileListener dups fd, so our copy is closed here
	f := os.NewFile(uintptr(fd), "listener:"+port)
	defer f.Close()

	return net.FileListener(f)
}

// create new socket, bind and start listening
func listenSocket(family, port int) (int, error) {
	// SOCK_STREAM = TCP
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd) // workers get the conn they need explicitly

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}

	var sa unix.Sockaddr
	if family == unix.AF_INET6 {
		// accept v4-mapped peers too
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			unix.Close(fd)
			return -1, err
		}
		sa = &unix.SockaddrInet6{Port: port}
	} else {
		sa = &unix.SockaddrInet4{Port: port}
	}

	if err := unix.Bind(fd, sa); err != nil { // bind socket to [::]:port or 0.0.0.0:port
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}
