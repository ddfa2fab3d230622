package sshagent

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/ssh"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/store"
)

// AgentKey is an in-memory key minted from a vault SshKey credential.
type AgentKey struct {
	PublicBlob   []byte
	Comment      string
	SecretSeed   [32]byte
	IdentityID   string
	CredentialID string
}

// LoadKeys enumerates credentials of type SshKey, decoding private_key as a
// 32-byte base64 seed and public_key as OpenSSH text to recover the raw
// public blob, per spec.md §4.4's key-load procedure.
//
// privateKeyB64/publicKeyText are callback-supplied plaintext for
// credential c (the caller, vaultservice, has already unwrapped the item key
// and decrypted the payload before calling this); sshagent itself never
// touches wrapped_item_key or the KEK.
func LoadKeys(credentials []*store.Credential, decrypt func(c *store.Credential) (privateKeyB64, publicKeyText string, err error)) ([]*AgentKey, error) {
	var keys []*AgentKey
	for _, c := range credentials {
		if c.CredentialType != "SshKey" {
			continue
		}
		privB64, pubText, err := decrypt(c)
		if err != nil {
			return nil, err
		}

		seedBytes, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return nil, &perrors.InvalidInput{Field: "private_key", Reason: "not valid base64"}
		}
		if len(seedBytes) != 32 {
			return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize}
		}

		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pubText))
		if err != nil {
			return nil, &perrors.InvalidInput{Field: "public_key", Reason: err.Error()}
		}

		ak := &AgentKey{
			PublicBlob:   pub.Marshal(),
			Comment:      c.Name,
			IdentityID:   c.IdentityID,
			CredentialID: c.ID,
		}
		copy(ak.SecretSeed[:], seedBytes)
		keys = append(keys, ak)
	}
	return keys, nil
}

// TestKeyFromSeed builds a single AgentKey from a hex-encoded 32-byte
// ed25519 seed, for the PERSONA_AGENT_TEST_KEY_SEED override (spec.md §6)
// that lets integration tests exercise the agent protocol without a vault.
func TestKeyFromSeed(hexSeed, comment string) (*AgentKey, error) {
	seedBytes, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, &perrors.InvalidInput{Field: "PERSONA_AGENT_TEST_KEY_SEED", Reason: "not valid hex"}
	}
	if len(seedBytes) != ed25519.SeedSize {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize}
	}

	priv := ed25519.NewKeyFromSeed(seedBytes)
	pub, err := ssh.NewPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, &perrors.InvalidInput{Field: "PERSONA_AGENT_TEST_KEY_SEED", Reason: err.Error()}
	}

	if comment == "" {
		comment = "test-key"
	}
	ak := &AgentKey{
		PublicBlob:   pub.Marshal(),
		Comment:      comment,
		IdentityID:   "test",
		CredentialID: "test",
	}
	copy(ak.SecretSeed[:], seedBytes)
	return ak, nil
}
