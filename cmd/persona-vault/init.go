package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/persona-vault/persona/internal/personalog"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault database and set the master password",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	if _, err := st.UserAuths.FindSingle(); err == nil {
		return fmt.Errorf("vault already initialized at %s", cfg.Vault.DatabasePath)
	}

	password, err := readMasterPassword()
	if err != nil {
		return err
	}
	if err := bootstrapAuth(st, password); err != nil {
		return fmt.Errorf("setting master password: %w", err)
	}

	fmt.Printf("Vault initialized at %s\n", cfg.Vault.DatabasePath)
	return nil
}
