package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "persona-vault",
	Short: "Persona vault CLI - local identity and credential management",
	Long: `persona-vault manages the local Persona identity/credential vault:
bootstrapping the master password, creating identities, and storing and
retrieving encrypted credentials.

The credential commands open the database, authenticate against the stored
master password (read from PERSONA_MASTER_PASSWORD or prompted
interactively), perform one operation, and exit. The identity commands open
the database without authenticating; identity metadata is not encrypted.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (YAML or JSON)")

	// Note: commands are registered in their respective files
	// - init.go: initCmd
	// - identity.go: identityCmd and its subcommands
	// - credential.go: credentialCmd and its subcommands
}
