package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "persona-bridge",
	Short: "Persona native-messaging bridge - serves the browser extension protocol over stdio",
	Long: `persona-bridge reads length-prefixed JSON requests from stdin and
writes length-prefixed JSON responses to stdout, implementing the
native-messaging bridge protocol from spec.md §4.6 (pairing, suggestions,
autofill, TOTP, and clipboard-copy requests authenticated by a
per-pairing HMAC).

If PERSONA_MASTER_PASSWORD is set, the vault is unlocked non-interactively
at startup; otherwise, or if that unlock fails, it starts locked and stays
locked for the life of the process, since no request unlocks it. While
locked, request_fill, get_totp and copy fail with "locked"; hello, pairing,
status and get_suggestions still answer.`,
	RunE: runBridge,
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
