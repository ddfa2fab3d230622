package bridge

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/persona-vault/persona/internal/perrors"
)

// generatePairingCode returns a 6-decimal-digit, hyphenated pairing code
// (e.g. "482-913"), drawn from a CSPRNG.
func generatePairingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	digits := fmt.Sprintf("%06d", n.Int64())
	return digits[:3] + "-" + digits[3:], nil
}

// generatePairingKey returns 32 random bytes, url-safe base64 no-pad
// encoded, used as the HMAC secret shared with a finalized pairing.
func generatePairingKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
