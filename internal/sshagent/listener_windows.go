//go:build windows

package sshagent

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// Listen opens a Windows named pipe at path (e.g. `\\.\pipe\persona-agent`).
func Listen(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}
