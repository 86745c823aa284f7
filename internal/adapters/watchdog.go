package adapters

import (
	"context"
	"fmt"
	"net"
	"os"
)

// SystemdWatchdog implements daemon.WatchdogFunc by writing sd_notify's
// "WATCHDOG=1" datagram to the socket named by $NOTIFY_SOCKET. There is
// no third-party systemd client in the dependency graph this module
// draws from, and the protocol is a single newline-terminated datagram
// over a well-known abstract/unix socket, so this is implemented
// directly against net.DialUnix rather than pulling in a library for it.
//
// Outside a systemd unit with Type=notify and WatchdogSec set,
// $NOTIFY_SOCKET is unset and every call is a no-op.
func SystemdWatchdog(ctx context.Context) error {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return nil
	}

	addr := &net.UnixAddr{Name: socketPath, Net: "unixgram"}
	if socketPath[0] == '@' {
		addr.Name = "\x00" + socketPath[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return fmt.Errorf("dialing notify socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.Write([]byte("WATCHDOG=1\n")); err != nil {
		return fmt.Errorf("writing watchdog notification: %w", err)
	}
	return nil
}
