package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/persona-vault/persona/config"
	"github.com/persona-vault/persona/internal/auth"
	"github.com/persona-vault/persona/internal/autolock"
	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/policy"
	"github.com/persona-vault/persona/internal/sshagent"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultservice"
)

func runAgent(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := personalog.NewDefaultLogger()
	log.SetLevel(personalog.ParseLevel(cfg.Logging.Level))

	if err := os.MkdirAll(cfg.Vault.BlobRoot, 0700); err != nil {
		return fmt.Errorf("creating blob root: %w", err)
	}
	if err := os.MkdirAll(cfg.Agent.StateDir, 0700); err != nil {
		return fmt.Errorf("creating agent state dir: %w", err)
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

	// spec.md §4.4: the agent attempts a non-interactive unlock via
	// PERSONA_MASTER_PASSWORD; if it's absent it proceeds with an empty key
	// set rather than blocking startup on a prompt.
	var keys []*sshagent.AgentKey
	if password := os.Getenv("PERSONA_MASTER_PASSWORD"); password != "" {
		lockPolicy := autolock.Policy{
			InactivityTimeout:     cfg.AutoLock.InactivityTimeout,
			AbsoluteTimeout:       cfg.AutoLock.AbsoluteTimeout,
			MaxConcurrentSessions: cfg.AutoLock.MaxConcurrentSessions,
		}
		if _, err := svc.Unlock([]byte(password), lockPolicy, time.Now()); err != nil {
			log.Warn("startup unlock failed, serving an empty key set", personalog.Error(err))
		} else if keys, err = svc.LoadSSHKeys(); err != nil {
			return fmt.Errorf("loading SSH keys: %w", err)
		}
	} else {
		log.Info("PERSONA_MASTER_PASSWORD not set, starting with an empty key set")
	}

	if seed := os.Getenv("PERSONA_AGENT_TEST_KEY_SEED"); seed != "" {
		testKey, err := sshagent.TestKeyFromSeed(seed, os.Getenv("PERSONA_AGENT_TEST_KEY_COMMENT"))
		if err != nil {
			return fmt.Errorf("loading PERSONA_AGENT_TEST_KEY_SEED: %w", err)
		}
		keys = []*sshagent.AgentKey{testKey}
	}

	pf, err := loadPolicyFile(cfg.Agent.PolicyFile)
	if err != nil {
		return fmt.Errorf("loading policy file: %w", err)
	}
	applyPolicyEnvOverrides(pf)
	enforcer := policy.New(*pf)
	if pf.Global.EnforceKnownHosts && cfg.Agent.KnownHostsFile != "" {
		enforcer.SetKnownHostsChecker(sshagent.KnownHostsChecker(cfg.Agent.KnownHostsFile))
	}

	agent := sshagent.New(keys, enforcer, st.AuditLogs, log)

	ln, err := sshagent.Listen(cfg.Agent.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Agent.SocketPath, err)
	}

	pidPath := filepath.Join(cfg.Agent.StateDir, "pid")
	sockPath := filepath.Join(cfg.Agent.StateDir, "sock")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		ln.Close()
		return fmt.Errorf("writing pid file: %w", err)
	}
	if err := os.WriteFile(sockPath, []byte(cfg.Agent.SocketPath), 0600); err != nil {
		ln.Close()
		return fmt.Errorf("writing sock file: %w", err)
	}
	defer os.Remove(pidPath)
	defer os.Remove(sockPath)

	fmt.Printf("SSH_AUTH_SOCK=%s\n", cfg.Agent.SocketPath)
	log.Info("persona-agent listening", personalog.String("socket", cfg.Agent.SocketPath), personalog.Int("keys", len(keys)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		ln.Close()
	}()

	if err := agent.Serve(ln); err != nil {
		// Listener closed deliberately on shutdown signal.
		log.Info("persona-agent shutting down", personalog.Error(err))
	}
	return nil
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

func loadPolicyFile(path string) (*policy.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &policy.File{}, nil
	}
	return policy.LoadFile(path)
}

// applyPolicyEnvOverrides layers the env-level policy overrides from
// spec.md §6 on top of a loaded (or empty) policy file's global section.
func applyPolicyEnvOverrides(pf *policy.File) {
	if isTruthy(os.Getenv("PERSONA_AGENT_REQUIRE_CONFIRM")) {
		pf.Global.RequireConfirm = true
	}
	if v := os.Getenv("PERSONA_AGENT_MIN_INTERVAL_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			pf.Global.MinIntervalMs = ms
		}
	}
	if isTruthy(os.Getenv("PERSONA_AGENT_ENFORCE_KNOWN_HOSTS")) {
		pf.Global.EnforceKnownHosts = true
	}
	if isTruthy(os.Getenv("PERSONA_AGENT_CONFIRM_ON_UNKNOWN")) {
		pf.Global.ConfirmOnUnknownHost = true
	}
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
