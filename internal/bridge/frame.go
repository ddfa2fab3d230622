// Package bridge implements the native-messaging request/reply protocol: a
// stdio frame loop, pairing/session bookkeeping, canonical-JSON HMAC request
// authentication, and the per-type handlers a browser extension drives.
package bridge

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/persona-vault/persona/internal/perrors"
)

// MaxFrameLen is the largest accepted frame payload, per spec.
const MaxFrameLen = 10 << 20

// ReadFrame reads one len_le_u32‖utf8_json frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameLen {
		return nil, &perrors.InvalidInput{Field: "frame", Reason: "frame exceeds maximum length"}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload as one len_le_u32‖utf8_json frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLen {
		return &perrors.InvalidInput{Field: "frame", Reason: "frame exceeds maximum length"}
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadRequest reads and decodes one Request frame from r.
func ReadRequest(r io.Reader) (*Request, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, &perrors.InvalidInput{Field: "payload", Reason: "malformed request json"}
	}
	return &req, nil
}

// WriteResponse encodes and writes resp as one frame to w.
func WriteResponse(w io.Writer, resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}
