// Package dblock serializes integration tests that share one Postgres or
// Redis instance across test binaries.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45432"

// Acquire blocks until this process holds the lock and returns its
// release func. The lock is a bound TCP port so it is dropped when the
// test binary exits. TEST_LOCK_ADDR overrides the port.
func Acquire() func() {
	addr := os.Getenv("TEST_LOCK_ADDR")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
