//go:build !windows

package sshagent

import (
	"fmt"
	"net"
	"os"
)

// Listen opens a Unix domain socket at path, removing any stale socket file
// left behind by a previous unclean shutdown.
func Listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("sshagent: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("sshagent: chmod %s: %w", path, err)
	}
	return ln, nil
}
