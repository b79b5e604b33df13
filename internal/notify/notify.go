// Package notify tells the service manager about the state of hangar through
// the socket named by the NOTIFY_SOCKET environment variable. When that
// variable is unset every call is a no-op.
package notify

import "fmt"

// Readiness reports that the line server is accepting connections.
func Readiness(address string) error {
	return send(fmt.Sprintf("READY=1\nSTATUS=accepting connections on %s", address))
}

// Status updates the free-form status line shown by the service manager.
func Status(msg string) error {
	return send("STATUS=" + msg)
}

// Stopping reports that hangar has started shutting down.
func Stopping() error {
	return send("STOPPING=1\nSTATUS=shutting down")
}
