package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/persona-vault/persona/internal/personalog"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities",
}

var (
	identityType        string
	identityDescription string
)

var identityCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityCreate,
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities",
	RunE:  runIdentityList,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityCreateCmd)
	identityCmd.AddCommand(identityListCmd)

	identityCreateCmd.Flags().StringVar(&identityType, "type", "Personal", "identity type (Personal, Work, Business, Anonymous)")
	identityCreateCmd.Flags().StringVar(&identityDescription, "description", "", "identity description")
}

func runIdentityCreate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	var description *string
	if identityDescription != "" {
		description = &identityDescription
	}

	identity, err := svc.CreateIdentity(args[0], identityType, description, nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}
	fmt.Printf("%s\t%s\t%s\n", identity.ID, identity.Name, identity.IdentityType)
	return nil
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	identities, err := svc.ListIdentities()
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}
	for _, identity := range identities {
		fmt.Printf("%s\t%s\t%s\n", identity.ID, identity.Name, identity.IdentityType)
	}
	return nil
}
