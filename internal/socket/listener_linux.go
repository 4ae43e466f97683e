//go:build linux

package socket

import "golang.org/x/sys/unix"

// Linux exposes TCP_DEFER_ACCEPT and TCP_FASTOPEN as setsockopt
// options on the listening socket; neither constant is declared by
// golang.org/x/sys/unix on every Go release, so the raw option
// numbers from pkg/shockwave/socket/tuning_linux.go are used here.
const (
	tcpDeferAccept = 9
	tcpFastOpen    = 23
)

func applyListenerOptions(fd int, cfg Config) error {
	var lastErr error
	if cfg.DeferAccept {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpDeferAccept, 5); err != nil {
			lastErr = err
		}
	}
	if cfg.FastOpen {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpFastOpen, 256); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
