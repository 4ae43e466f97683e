// Package socket creates the shared SO_REUSEPORT listening socket
// every worker races accept4 on, following the socket-tuning idiom of
// pkg/shockwave/socket/tuning.go in spirit (named Config, a single
// cross-platform Listen entry point, per-platform files for the
// options syscall doesn't expose uniformly) but working on raw file
// descriptors via golang.org/x/sys/unix instead of net.Listener,
// since internal/eventloop drives readiness with epoll/poll directly
// on the fd.
package socket

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Config describes how the shared listening socket should be created.
// Zero values mean "use system defaults" except where noted.
type Config struct {
	Host string
	Port int

	// Backlog is the listen() backlog; original_source/src/server.c's
	// validate_settings requires this to be nonzero (see
	// internal/config.Settings.Validate).
	Backlog int

	// NoDelay disables Nagle's algorithm on accepted connections.
	NoDelay bool

	// DeferAccept and FastOpen are Linux-only best-effort
	// optimizations applied by applyListenerOptions in
	// listener_linux.go; they are no-ops on other platforms.
	DeferAccept bool
	FastOpen    bool
}

// Listen creates, binds, and begins listening on a SO_REUSEPORT +
// SO_REUSEADDR TCP socket, returning its raw, non-blocking file
// descriptor. Every worker goroutine calls Listen independently with
// the same Host/Port; the kernel load-balances accept4 calls across
// the resulting sockets (spec.md §5).
func Listen(cfg Config) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("SO_REUSEPORT: %w", err)
	}

	addr, err := resolveSockaddr(cfg.Host, cfg.Port)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblocking: %w", err)
	}

	if err := applyListenerOptions(fd, cfg); err != nil {
		// Non-critical platform-specific tuning: a failure is dropped
		// here and does not fail startup.
		_ = err
	}

	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}

	return fd, nil
}

func resolveSockaddr(host string, port int) (unix.Sockaddr, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolve host %q: %w", host, err)
	}
	var ip net.IP
	for _, candidate := range ips {
		if v4 := candidate.To4(); v4 != nil {
			ip = v4
			break
		}
	}
	if ip == nil {
		if len(ips) == 0 {
			return nil, fmt.Errorf("no addresses for host %q", host)
		}
		ip = ips[0]
	}

	var addr unix.SockaddrInet4
	copy(addr.Addr[:], ip.To4())
	addr.Port = port
	return &addr, nil
}

// Accept accepts one pending connection from listenFD as a
// non-blocking file descriptor, applying TCP_NODELAY per cfg.
func Accept(listenFD int, cfg Config) (connFD int, remoteAddr string, err error) {
	connFD, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
	if err != nil {
		return -1, "", err
	}
	if cfg.NoDelay {
		_ = unix.SetsockoptInt(connFD, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	return connFD, formatSockaddr(sa), nil
}

// BoundPort returns the port a Listen-created socket is actually bound
// to, useful when Config.Port is 0 (let the kernel pick one).
func BoundPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port, nil
	case *unix.SockaddrInet6:
		return a.Port, nil
	default:
		return 0, fmt.Errorf("unexpected sockaddr type %T", sa)
	}
}

func formatSockaddr(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		ip := net.IP(a.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(a.Port))
	default:
		return ""
	}
}
