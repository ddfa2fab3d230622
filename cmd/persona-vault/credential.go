package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/vaultcrypto/payload"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage credentials",
}

var (
	credentialIdentityID string
	credentialURL        string
	credentialUsername   string
	credentialPassword   string
)

var credentialCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a Password credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialCreate,
}

var credentialFillCmd = &cobra.Command{
	Use:   "fill CREDENTIAL_ID",
	Short: "Decrypt and print a Password credential's username and password",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialFill,
}

var credentialTOTPCmd = &cobra.Command{
	Use:   "totp CREDENTIAL_ID",
	Short: "Generate the current TOTP code for a TwoFactor credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialTOTP,
}

var credentialListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials for an identity",
	RunE:  runCredentialList,
}

func init() {
	rootCmd.AddCommand(credentialCmd)
	credentialCmd.AddCommand(credentialCreateCmd)
	credentialCmd.AddCommand(credentialFillCmd)
	credentialCmd.AddCommand(credentialTOTPCmd)
	credentialCmd.AddCommand(credentialListCmd)

	credentialCreateCmd.Flags().StringVar(&credentialIdentityID, "identity", "", "owning identity ID (required)")
	credentialCreateCmd.Flags().StringVar(&credentialURL, "url", "", "credential URL")
	credentialCreateCmd.Flags().StringVar(&credentialUsername, "username", "", "credential username")
	credentialCreateCmd.Flags().StringVar(&credentialPassword, "password", "", "credential password")
	credentialCreateCmd.MarkFlagRequired("identity")

	credentialListCmd.Flags().StringVar(&credentialIdentityID, "identity", "", "restrict to this identity")
}

func runCredentialCreate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	if _, err := unlockFromEnvOrPrompt(svc, cfg); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	var url, username *string
	if credentialURL != "" {
		url = &credentialURL
	}
	if credentialUsername != "" {
		username = &credentialUsername
	}

	now := time.Now()
	cred, err := svc.CreateCredential(credentialIdentityID, args[0], "Password", url, username, nil, nil,
		payload.Password{Password: credentialPassword}, now)
	if err != nil {
		return fmt.Errorf("creating credential: %w", err)
	}
	fmt.Println(cred.ID)
	return nil
}

func runCredentialFill(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	if _, err := unlockFromEnvOrPrompt(svc, cfg); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	username, password, err := svc.Fill(args[0])
	if err != nil {
		return fmt.Errorf("decrypting credential: %w", err)
	}
	fmt.Printf("username: %s\npassword: %s\n", username, password)
	return nil
}

func runCredentialTOTP(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	if _, err := unlockFromEnvOrPrompt(svc, cfg); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	code, err := svc.TOTP(args[0], time.Now())
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}
	fmt.Println(code)
	return nil
}

func runCredentialList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	svc, st, err := openService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()
	defer st.Close()

	if _, err := unlockFromEnvOrPrompt(svc, cfg); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	if credentialIdentityID != "" {
		if err := svc.SetActiveIdentity(credentialIdentityID, time.Now()); err != nil {
			return fmt.Errorf("selecting identity: %w", err)
		}
	}

	creds, err := svc.Suggestions()
	if err != nil {
		return fmt.Errorf("listing credentials: %w", err)
	}
	for _, c := range creds {
		fmt.Printf("%s\t%s\t%s\n", c.ID, c.Type, c.URL)
	}
	return nil
}
