package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/persona-vault/persona/internal/perrors"
)

// Secp256k1KeyPair is a wallet-signing-capable secp256k1 key pair.
type Secp256k1KeyPair struct {
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
	id         string
}

// GenerateSecp256k1KeyPair generates a fresh secp256k1 key pair, identified
// by the first 8 bytes of sha256(compressed public key).
func GenerateSecp256k1KeyPair() (*Secp256k1KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	pub := priv.PubKey()
	hash := sha256.Sum256(pub.SerializeCompressed())
	return &Secp256k1KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		id:         hex.EncodeToString(hash[:8]),
	}, nil
}

// ID returns a short stable identifier for this key pair.
func (kp *Secp256k1KeyPair) ID() string { return kp.id }

// Sign produces a 64-byte r‖s ECDSA signature over sha256(message).
func (kp *Secp256k1KeyPair) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, kp.PrivateKey.ToECDSA(), hash[:])
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	return serializeSignature(r, s), nil
}

// Verify checks a 64-byte r‖s ECDSA signature.
func (kp *Secp256k1KeyPair) Verify(message, signature []byte) error {
	hash := sha256.Sum256(message)
	r, s, err := deserializeSignature(signature)
	if err != nil {
		return err
	}
	if !ecdsa.Verify(kp.PublicKey.ToECDSA(), hash[:], r, s) {
		return &perrors.CryptographicError{Kind: perrors.KindAuthenticationFailed}
	}
	return nil
}

// EthereumAddress derives the "0x"-prefixed EVM address from the Keccak256
// hash of the uncompressed public key point, matching the network's
// canonical address derivation.
func (kp *Secp256k1KeyPair) EthereumAddress() string {
	ecdsaPub := kp.PublicKey.ToECDSA()
	pubKeyBytes := make([]byte, 64)
	ecdsaPub.X.FillBytes(pubKeyBytes[:32])
	ecdsaPub.Y.FillBytes(pubKeyBytes[32:])

	hash := sha3.NewLegacyKeccak256()
	hash.Write(pubKeyBytes)
	addressBytes := hash.Sum(nil)

	return "0x" + hex.EncodeToString(addressBytes[12:])
}

func serializeSignature(r, s *big.Int) []byte {
	rBytes := r.Bytes()
	sBytes := s.Bytes()

	signature := make([]byte, 64)
	copy(signature[32-len(rBytes):32], rBytes)
	copy(signature[64-len(sBytes):64], sBytes)
	return signature
}

func deserializeSignature(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 {
		return nil, nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize}
	}
	r := new(big.Int).SetBytes(data[:32])
	s := new(big.Int).SetBytes(data[32:])
	return r, s, nil
}
