package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "persona-agent",
	Short: "Persona SSH agent - serves loaded SshKey credentials over a UNIX socket",
	Long: `persona-agent unlocks the vault, loads every SshKey credential into
memory, and serves the SSH agent protocol subset from spec.md §4.4 over a
UNIX domain socket (a named pipe on Windows), gated by the policy enforcer
from spec.md §4.5.

It writes SSH_AUTH_SOCK=<path> to stdout on startup, persists sock/pid
files under its state directory, and exits 0 on clean shutdown.`,
	RunE: runAgent,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a config file (YAML or JSON)")
}
