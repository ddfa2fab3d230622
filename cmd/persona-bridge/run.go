package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/persona-vault/persona/config"
	"github.com/persona-vault/persona/internal/auth"
	"github.com/persona-vault/persona/internal/autolock"
	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/bridge"
	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultservice"
)

func runBridge(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	if err := os.MkdirAll(cfg.Vault.BlobRoot, 0700); err != nil {
		return fmt.Errorf("creating blob root: %w", err)
	}
	if err := os.MkdirAll(cfg.Bridge.StateDir, 0700); err != nil {
		return fmt.Errorf("creating bridge state dir: %w", err)
	}

	st, err := store.Open(cfg.Vault.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening vault database: %w", err)
	}
	defer st.Close()

	blobs, err := blobstore.New(cfg.Vault.BlobRoot)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	ws, err := singleWorkspace(st)
	if err != nil {
		return err
	}

	authCfg := auth.Config{FailureThreshold: cfg.Auth.FailureThreshold, LockoutDuration: cfg.Auth.LockoutDuration}
	svc := vaultservice.New(st, blobs, authCfg, autolock.DefaultTickInterval, ws.ID, log)
	defer svc.Stop()

	if password := os.Getenv("PERSONA_MASTER_PASSWORD"); password != "" {
		lockPolicy := autolock.Policy{
			InactivityTimeout:     cfg.AutoLock.InactivityTimeout,
			AbsoluteTimeout:       cfg.AutoLock.AbsoluteTimeout,
			MaxConcurrentSessions: cfg.AutoLock.MaxConcurrentSessions,
		}
		if _, err := svc.Unlock([]byte(password), lockPolicy, time.Now()); err != nil {
			log.Warn("startup unlock failed, starting locked", personalog.Error(err))
		}
	}

	statePath := filepath.Join(cfg.Bridge.StateDir, "state.json")
	bridgeState, err := bridge.LoadState(statePath)
	if err != nil {
		return fmt.Errorf("loading bridge state: %w", err)
	}

	opts := bridge.DefaultOptions()
	opts.RequireUserGesture = cfg.Bridge.RequireGesture
	if cfg.Bridge.AuthMaxSkewMs > 0 {
		opts.MaxSkew = time.Duration(cfg.Bridge.AuthMaxSkewMs) * time.Millisecond
	}

	server := bridge.NewServer(bridgeState, statePath, svc, opts, log)
	log.Info("persona-bridge serving stdio", personalog.String("state_dir", cfg.Bridge.StateDir))
	return server.Serve(os.Stdin, os.Stdout)
}

func loadConfig() *config.Config {
	if configPath != "" {
		if cfg, err := config.LoadFromFile(configPath); err == nil {
			return cfg
		}
	}
	return config.MustLoad()
}

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
