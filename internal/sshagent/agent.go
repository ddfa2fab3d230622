package sshagent

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/policy"
	"github.com/persona-vault/persona/internal/store"
)

// Confirmer prompts the user on the controlling terminal and reports assent.
type Confirmer func(reason string) bool

// Biometric invokes the platform biometric provider, reporting success.
// Implementations that have no biometric provider available should return
// (false, false) so the caller falls back to Confirmer.
type Biometric func(reason string) (ok bool, available bool)

// Agent serves the SSH agent protocol subset over accepted connections. Per
// spec.md §4.4's concurrency model, all connections share a read-only
// snapshot of loaded keys and a single mutex-guarded policy.Enforcer.
type Agent struct {
	keys      []*AgentKey
	enforcer  *policy.Enforcer
	audit     *store.AuditLogRepo
	log       personalog.Logger
	confirm   Confirmer
	biometric Biometric
	getenv    func(string) string
}

// New constructs an Agent over a fixed key snapshot.
func New(keys []*AgentKey, enforcer *policy.Enforcer, audit *store.AuditLogRepo, log personalog.Logger) *Agent {
	return &Agent{
		keys:     keys,
		enforcer: enforcer,
		audit:    audit,
		log:      log,
		confirm:  terminalConfirm,
		biometric: func(string) (bool, bool) { return false, false },
		getenv:   os.Getenv,
	}
}

// Serve accepts connections on ln until it is closed, handling each in its
// own goroutine.
func (a *Agent) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go a.handleConn(conn)
	}
}

func (a *Agent) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		frame, err := ReadFrame(r)
		if err != nil {
			return
		}
		resp := a.dispatch(frame)
		if err := WriteFrame(conn, resp); err != nil {
			return
		}
	}
}

func (a *Agent) dispatch(frame []byte) []byte {
	if len(frame) == 0 {
		return EncodeFailure()
	}
	switch frame[0] {
	case MsgRequestIdentities:
		return EncodeIdentitiesAnswer(a.keys)
	case MsgSignRequest:
		return a.handleSignRequest(frame)
	default:
		return EncodeFailure()
	}
}

func (a *Agent) handleSignRequest(frame []byte) []byte {
	req, err := decodeSignRequest(frame)
	if err != nil {
		return EncodeFailure()
	}

	key := a.findKey(req.KeyBlob)
	if key == nil {
		return EncodeFailure()
	}

	host := ResolveTargetHost(a.getenv)
	now := time.Now()
	decision := a.enforcer.Check(key.CredentialID, host, now)

	switch decision {
	case policy.Denied:
		return EncodeFailure()
	case policy.RequireConfirm:
		if !a.confirm(fmt.Sprintf("sign request for %s targeting %s", key.Comment, host)) {
			return EncodeFailure()
		}
	case policy.RequireBiometric:
		ok, available := a.biometric(fmt.Sprintf("sign request for %s", key.Comment))
		if !available {
			if !a.confirm(fmt.Sprintf("sign request for %s targeting %s", key.Comment, host)) {
				return EncodeFailure()
			}
		} else if !ok {
			return EncodeFailure()
		}
	case policy.Allowed:
		// proceed
	default:
		return EncodeFailure()
	}

	a.enforcer.Record(key.CredentialID, host, now)

	priv := ed25519.NewKeyFromSeed(key.SecretSeed[:])
	sig := ed25519.Sign(priv, req.Data)

	go a.auditSign(key, req.Data)

	return EncodeSignResponse(sig)
}

func (a *Agent) findKey(publicBlob []byte) *AgentKey {
	for _, k := range a.keys {
		if bytes.Equal(k.PublicBlob, publicBlob) {
			return k
		}
	}
	return nil
}

// auditSign records a best-effort audit log entry; failures here never
// block the signing response.
func (a *Agent) auditSign(key *AgentKey, data []byte) {
	if a.audit == nil {
		return
	}
	sum := sha256.Sum256(data)
	credentialID := key.CredentialID
	entry := &store.AuditLog{
		ID:           uuid.NewString(),
		ResourceType: "credential",
		ResourceID:   &credentialID,
		CredentialID: &credentialID,
		Action:       "ssh_sign",
		Success:      true,
		Metadata:     map[string]string{"data_sha256": hex.EncodeToString(sum[:])},
		Timestamp:    time.Now().UTC(),
	}
	if err := a.audit.Create(entry); err != nil && a.log != nil {
		a.log.Warn("sshagent: audit log write failed", personalog.Field{Key: "error", Value: err.Error()})
	}
}

// terminalConfirm prompts on /dev/tty if available, else stdin/stdout.
func terminalConfirm(reason string) bool {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	in, out := os.Stdin, os.Stdout
	if err == nil {
		defer tty.Close()
		in, out = tty, tty
	}
	fmt.Fprintf(out, "persona-agent: %s — allow? [y/N] ", reason)
	reader := bufio.NewReader(in)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
