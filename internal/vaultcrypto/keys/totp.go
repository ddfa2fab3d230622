package keys

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"strings"

	"github.com/persona-vault/persona/internal/perrors"
)

// TOTPAlgorithm names the HMAC hash backing a TOTP secret, per RFC 6238.
type TOTPAlgorithm string

const (
	TOTPAlgorithmSHA1   TOTPAlgorithm = "SHA1"
	TOTPAlgorithmSHA256 TOTPAlgorithm = "SHA256"
	TOTPAlgorithmSHA512 TOTPAlgorithm = "SHA512"
)

// TOTPParams describes a two-factor secret's generation parameters.
type TOTPParams struct {
	Secret    []byte
	Algorithm TOTPAlgorithm
	Digits    int
	Period    int64
}

func (p TOTPParams) newHash() func() hash.Hash {
	switch p.Algorithm {
	case TOTPAlgorithmSHA256:
		return sha256.New
	case TOTPAlgorithmSHA512:
		return sha512.New
	default:
		return sha1.New
	}
}

// GenerateTOTP computes the TOTP code valid at unixTime, per RFC 6238:
// T = floor(unixTime / period), followed by RFC 4226 HMAC-based dynamic
// truncation.
func GenerateTOTP(p TOTPParams, unixTime int64) (string, error) {
	if len(p.Secret) == 0 {
		return "", &perrors.InvalidInput{Field: "secret", Reason: "must not be empty"}
	}
	digits := p.Digits
	if digits == 0 {
		digits = 6
	}
	period := p.Period
	if period == 0 {
		period = 30
	}

	counter := uint64(unixTime) / uint64(period)
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(p.newHash(), p.Secret)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0F
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	code := truncated % mod

	return padCode(code, digits), nil
}

func padCode(code uint32, digits int) string {
	s := make([]byte, digits)
	for i := digits - 1; i >= 0; i-- {
		s[i] = byte('0' + code%10)
		code /= 10
	}
	return string(s)
}

// DecodeBase32Secret decodes an RFC 3548/4648 base32 TOTP secret as typically
// entered by a user (uppercase, optional padding, spaces stripped).
func DecodeBase32Secret(s string) ([]byte, error) {
	clean := strings.TrimRight(strings.ToUpper(strings.ReplaceAll(s, " ", "")), "=")
	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(clean)
	if err != nil {
		return nil, &perrors.InvalidInput{Field: "totp_secret", Reason: "not valid base32"}
	}
	return decoded, nil
}
