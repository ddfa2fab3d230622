// Package payload implements the tagged, versioned, self-describing
// credential payload codec: every credential's decrypted plaintext is
// version(1 byte) ‖ credential_type_tag(1 byte) ‖ JSON body, so new payload
// variants can be added without breaking existing ciphertexts.
package payload

import (
	"encoding/json"

	"github.com/persona-vault/persona/internal/perrors"
)

// Version is the current payload envelope version.
const Version byte = 1

// Tag identifies a credential payload variant on the wire.
type Tag byte

const (
	TagPassword     Tag = 1
	TagCryptoWallet Tag = 2
	TagSshKey       Tag = 3
	TagApiKey       Tag = 4
	TagBankCard     Tag = 5
	TagGameAccount  Tag = 6
	TagServerConfig Tag = 7
	TagCertificate  Tag = 8
	TagTwoFactor    Tag = 9
	TagRaw          Tag = 10
	TagCustom       Tag = 11
)

var credentialTypeToTag = map[string]Tag{
	"Password":     TagPassword,
	"CryptoWallet": TagCryptoWallet,
	"SshKey":       TagSshKey,
	"ApiKey":       TagApiKey,
	"BankCard":     TagBankCard,
	"GameAccount":  TagGameAccount,
	"ServerConfig": TagServerConfig,
	"Certificate":  TagCertificate,
	"TwoFactor":    TagTwoFactor,
	"Raw":          TagRaw,
	"Custom":       TagCustom,
}

// TagForCredentialType maps a Credential.credential_type discriminator
// (e.g. "Password", or "Custom:foo") to its wire tag.
func TagForCredentialType(credentialType string) (Tag, error) {
	if len(credentialType) >= 7 && credentialType[:7] == "Custom:" {
		return TagCustom, nil
	}
	tag, ok := credentialTypeToTag[credentialType]
	if !ok {
		return 0, &perrors.UnsupportedOperation{Operation: "credential_type:" + credentialType}
	}
	return tag, nil
}

// Password is the plaintext payload for a Password credential.
type Password struct {
	Password          string   `json:"password"`
	Email             string   `json:"email,omitempty"`
	SecurityQuestions []string `json:"security_questions,omitempty"`
}

// SshKey is the plaintext payload for an SshKey credential. PrivateKey is
// the base64 encoding of the 32-byte ed25519 seed; PublicKey is OpenSSH
// authorized_keys text.
type SshKey struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// TwoFactor is the plaintext payload for a TwoFactor (TOTP) credential.
type TwoFactor struct {
	SecretKey   string `json:"secret_key"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
	Algorithm   string `json:"algorithm"`
	Digits      int    `json:"digits"`
	Period      int64  `json:"period"`
}

// CryptoWallet is the plaintext payload for a CryptoWallet credential.
type CryptoWallet struct {
	Chain      string `json:"chain"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
	Mnemonic   string `json:"mnemonic,omitempty"`
}

// ApiKey is the plaintext payload for an ApiKey credential.
type ApiKey struct {
	Key    string `json:"key"`
	Secret string `json:"secret,omitempty"`
}

// Raw is the plaintext payload for an opaque byte-blob credential.
type Raw struct {
	Data []byte `json:"data"`
}

// Encode serializes a typed payload value into the versioned envelope.
func Encode(tag Tag, value interface{}) ([]byte, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, &perrors.InvalidInput{Field: "payload", Reason: "could not marshal: " + err.Error()}
	}
	out := make([]byte, 2, 2+len(body))
	out[0] = Version
	out[1] = byte(tag)
	out = append(out, body...)
	return out, nil
}

// Decode parses a versioned envelope, validating the embedded tag matches
// expectedTag (the credential's declared credential_type) before unmarshaling
// into dest. Fails closed on any mismatch.
func Decode(envelope []byte, expectedTag Tag, dest interface{}) error {
	if len(envelope) < 2 {
		return &perrors.InvalidInput{Field: "payload", Reason: "envelope too short"}
	}
	if envelope[0] != Version {
		return &perrors.UnsupportedOperation{Operation: "payload_version"}
	}
	tag := Tag(envelope[1])
	if tag != expectedTag {
		return &perrors.InvalidInput{Field: "credential_type", Reason: "payload tag does not match declared credential type"}
	}
	if err := json.Unmarshal(envelope[2:], dest); err != nil {
		return &perrors.InvalidInput{Field: "payload", Reason: "could not unmarshal: " + err.Error()}
	}
	return nil
}
