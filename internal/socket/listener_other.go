//go:build !linux

package socket

// TCP_DEFER_ACCEPT and TCP_FASTOPEN tuning are Linux-only; elsewhere
// this is a no-op and cfg.DeferAccept/FastOpen are simply ignored.
func applyListenerOptions(fd int, cfg Config) error {
	return nil
}
