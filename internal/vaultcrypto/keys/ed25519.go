// Package keys implements Persona's public-key primitives: ed25519 for SSH
// agent signing, secp256k1 for wallet addresses, and TOTP for two-factor
// credentials.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/ssh"

	"github.com/persona-vault/persona/internal/perrors"
)

// Ed25519KeyPair is an SSH-signing-capable ed25519 key pair.
type Ed25519KeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	id         string
}

// GenerateEd25519KeyPair generates a fresh ed25519 key pair, identified by
// the first 8 bytes of sha256(public key).
func GenerateEd25519KeyPair() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	hash := sha256.Sum256(pub)
	return &Ed25519KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		id:         hex.EncodeToString(hash[:8]),
	}, nil
}

// ID returns a short stable identifier for this key pair.
func (kp *Ed25519KeyPair) ID() string { return kp.id }

// Sign produces a raw ed25519 signature over message.
func (kp *Ed25519KeyPair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(kp.PrivateKey, message), nil
}

// Verify checks a raw ed25519 signature.
func (kp *Ed25519KeyPair) Verify(message, signature []byte) error {
	if !ed25519.Verify(kp.PublicKey, message, signature) {
		return &perrors.CryptographicError{Kind: perrors.KindAuthenticationFailed}
	}
	return nil
}

// OpenSSHWireBlob encodes the public key as the SSH wire "ssh-ed25519" public
// key blob: string("ssh-ed25519") ‖ string(pub[32]).
func (kp *Ed25519KeyPair) OpenSSHWireBlob() []byte {
	var out []byte
	out = appendSSHString(out, []byte("ssh-ed25519"))
	out = appendSSHString(out, kp.PublicKey)
	return out
}

// AuthorizedKeysLine renders the public key in OpenSSH authorized_keys text
// form, e.g. "ssh-ed25519 AAAA... comment".
func (kp *Ed25519KeyPair) AuthorizedKeysLine(comment string) (string, error) {
	sshPub, err := ssh.NewPublicKey(kp.PublicKey)
	if err != nil {
		return "", &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	line := string(ssh.MarshalAuthorizedKey(sshPub))
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

// appendSSHString appends the SSH wire string encoding
// string(x) = len_be_u32 ‖ x to dst.
func appendSSHString(dst []byte, s []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, s...)
	return dst
}
