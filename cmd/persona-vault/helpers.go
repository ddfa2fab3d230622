package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/persona-vault/persona/config"
	"github.com/persona-vault/persona/internal/auth"
	"github.com/persona-vault/persona/internal/autolock"
	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
	"github.com/persona-vault/persona/internal/vaultservice"
)

var configPath string

func loadConfig() *config.Config {
	if configPath != "" {
		if cfg, err := config.LoadFromFile(configPath); err == nil {
			return cfg
		}
	}
	return config.MustLoad()
}

// openService opens the store and blob store named by cfg and builds a
// Service around them, without unlocking it.
func openService(cfg *config.Config, log personalog.Logger) (*vaultservice.Service, *store.Store, error) {
	if err := os.MkdirAll(cfg.Vault.BlobRoot, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating blob root: %w", err)
	}

	st, err := store.Open(cfg.Vault.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vault database: %w", err)
	}

	blobs, err := blobstore.New(cfg.Vault.BlobRoot)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("opening blob store: %w", err)
	}

	ws, err := singleWorkspace(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	authCfg := auth.Config{
		FailureThreshold: cfg.Auth.FailureThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	}
	svc := vaultservice.New(st, blobs, authCfg, autolock.DefaultTickInterval, ws.ID, log)
	return svc, st, nil
}

// singleWorkspace returns the vault's one workspace, creating it on first
// run. Persona is single-workspace-per-database, per spec.md §5.
func singleWorkspace(st *store.Store) (*store.Workspace, error) {
	all, err := st.Workspaces.FindAll()
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return all[0], nil
	}
	ws := &store.Workspace{ID: uuid.NewString(), Path: ".", Name: "default"}
	if err := st.Workspaces.Create(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// unlockFromEnvOrPrompt unlocks svc using PERSONA_MASTER_PASSWORD if set,
// else by prompting on the controlling terminal.
func unlockFromEnvOrPrompt(svc *vaultservice.Service, cfg *config.Config) (string, error) {
	password, err := readMasterPassword()
	if err != nil {
		return "", err
	}
	policy := autolock.Policy{
		InactivityTimeout:     cfg.AutoLock.InactivityTimeout,
		AbsoluteTimeout:       cfg.AutoLock.AbsoluteTimeout,
		MaxConcurrentSessions: cfg.AutoLock.MaxConcurrentSessions,
	}
	return svc.Unlock(password, policy, time.Now())
}

func readMasterPassword() ([]byte, error) {
	if pw := os.Getenv("PERSONA_MASTER_PASSWORD"); pw != "" {
		return []byte(pw), nil
	}
	fmt.Fprint(os.Stderr, "Master password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return pw, nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return []byte(trimNewline(line)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// bootstrapAuth creates the single UserAuth row for a fresh vault.
func bootstrapAuth(st *store.Store, password []byte) error {
	salt, err := vaultcrypto.GenerateSalt()
	if err != nil {
		return err
	}
	kek, err := vaultcrypto.DeriveKEK(password, salt)
	if err != nil {
		return err
	}
	defer kek.Zero()

	return st.UserAuths.Create(&store.UserAuth{
		UserID:            "local",
		PasswordHash:      kek[:],
		MasterKeySalt:     salt[:],
		PasswordChangedAt: time.Now().UTC(),
	})
}

