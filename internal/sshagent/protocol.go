// Package sshagent implements the subset of the SSH agent wire protocol
// described in spec.md §4.4 over a local stream socket.
package sshagent

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message type bytes, per spec.md §4.4's protocol subset.
const (
	MsgRequestIdentities = 11
	MsgIdentitiesAnswer  = 12
	MsgSignRequest       = 13
	MsgSignResponse      = 14
	MsgFailure           = 5
)

const maxFrameLen = 10 << 20 // defensive cap; spec.md gives no explicit bound for this socket, mirrors the bridge's 10 MiB frame cap

// ReadFrame reads one len_be_u32‖payload frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("sshagent: frame length %d exceeds max %d", n, maxFrameLen)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes one len_be_u32‖payload frame.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// appendString appends string(x) = len_be_u32 ‖ x.
func appendString(dst, s []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

// readString reads one string(x) field starting at buf[0], returning the
// decoded bytes and the remainder of buf.
func readString(buf []byte) (value, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("sshagent: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(n) > uint64(len(buf)) {
		return nil, nil, fmt.Errorf("sshagent: string length %d exceeds remaining %d", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}

// EncodeIdentitiesAnswer builds the type=12 response body for a set of keys.
func EncodeIdentitiesAnswer(keys []*AgentKey) []byte {
	out := []byte{MsgIdentitiesAnswer}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(keys)))
	out = append(out, countBuf[:]...)
	for _, k := range keys {
		out = appendString(out, k.PublicBlob)
		out = appendString(out, []byte(k.Comment))
	}
	return out
}

// signRequest is the parsed body of a type=13 SIGN_REQUEST.
type signRequest struct {
	KeyBlob []byte
	Data    []byte
	Flags   uint32
}

func decodeSignRequest(body []byte) (*signRequest, error) {
	if len(body) < 1 || body[0] != MsgSignRequest {
		return nil, fmt.Errorf("sshagent: not a SIGN_REQUEST")
	}
	rest := body[1:]
	keyBlob, rest, err := readString(rest)
	if err != nil {
		return nil, err
	}
	data, rest, err := readString(rest)
	if err != nil {
		return nil, err
	}
	var flags uint32
	if len(rest) >= 4 {
		flags = binary.BigEndian.Uint32(rest[:4])
	}
	return &signRequest{KeyBlob: keyBlob, Data: data, Flags: flags}, nil
}

// EncodeSignResponse builds the type=14 response: string(sig_blob) where
// sig_blob = string("ssh-ed25519") ‖ string(sig_bytes[64]).
func EncodeSignResponse(sig []byte) []byte {
	sigBlob := appendString(nil, []byte("ssh-ed25519"))
	sigBlob = appendString(sigBlob, sig)
	out := []byte{MsgSignResponse}
	return appendString(out, sigBlob)
}

// EncodeFailure builds the type=5 FAILURE response.
func EncodeFailure() []byte {
	return []byte{MsgFailure}
}
