// Command staticd serves a static file tree over plain HTTP/1.x,
// generalizing original_source/src/main.c's entry point into a cobra
// CLI. See SPEC_FULL.md §5's REDESIGN note: WorkerCount goroutines
// replace the original's forked OS processes, since Go cannot fork()
// safely; each still owns an independent epoll/poll readiness loop
// racing accept4 on a shared SO_REUSEPORT listening socket.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
