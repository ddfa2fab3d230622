// Package blobstore implements chunked, content-addressed attachment
// storage rooted at a configurable directory.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/vaultcrypto"
)

// DefaultChunkSize is the default chunk size in bytes (1 MiB).
const DefaultChunkSize = 1 << 20

// ChunkThreshold is the size above which an attachment is stored chunked
// rather than as a single file (100 MiB).
const ChunkThreshold = 100 << 20

// Store roots chunked attachment storage at a directory.
type Store struct {
	root string
}

// New returns a Store rooted at root, creating the directory if absent.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, &perrors.Io{Underlying: err}
	}
	return &Store{root: root}, nil
}

// Chunk describes one stored chunk, mirroring store.AttachmentChunk.
type Chunk struct {
	Index       int
	Size        int64
	ContentHash string
	StoragePath string
}

// PutResult summarizes a completed write, mirroring the fields an
// Attachment row needs.
type PutResult struct {
	StoragePath string
	ContentHash string
	Size        int64
	ChunkCount  int
	ChunkSize   int
	Chunks      []Chunk
	IsEncrypted bool
}

// Put writes data under <credentialID>/<attachmentID>/..., chunking it when
// larger than ChunkThreshold. If itemKey is non-nil, each chunk (or the
// single file) is AEAD-sealed under it before being written to disk.
func (s *Store) Put(credentialID, attachmentID, filename string, data []byte, chunkSize int, itemKey *[32]byte) (*PutResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	whole := sha256.Sum256(data)
	contentHash := hex.EncodeToString(whole[:])

	if len(data) <= ChunkThreshold {
		relPath := filepath.Join(credentialID, attachmentID, filename)
		if err := s.writeFile(relPath, data, itemKey); err != nil {
			return nil, err
		}
		return &PutResult{
			StoragePath: relPath,
			ContentHash: contentHash,
			Size:        int64(len(data)),
			ChunkCount:  1,
			ChunkSize:   chunkSize,
			IsEncrypted: itemKey != nil,
		}, nil
	}

	var chunks []Chunk
	for idx, offset := 0, 0; offset < len(data); idx, offset = idx+1, offset+chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunkData := data[offset:end]
		chunkHash := sha256.Sum256(chunkData)
		relPath := filepath.Join(credentialID, attachmentID, "chunks", fmt.Sprintf("chunk_%04d", idx))
		if err := s.writeFile(relPath, chunkData, itemKey); err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{
			Index:       idx,
			Size:        int64(len(chunkData)),
			ContentHash: hex.EncodeToString(chunkHash[:]),
			StoragePath: relPath,
		})
	}

	return &PutResult{
		StoragePath: filepath.Join(credentialID, attachmentID, "chunks"),
		ContentHash: contentHash,
		Size:        int64(len(data)),
		ChunkCount:  len(chunks),
		ChunkSize:   chunkSize,
		Chunks:      chunks,
		IsEncrypted: itemKey != nil,
	}, nil
}

// Get reads and reassembles a previously Put attachment's full content.
func (s *Store) Get(storagePath string, chunks []Chunk, itemKey *[32]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return s.readFile(storagePath, itemKey)
	}
	var out []byte
	for _, c := range chunks {
		chunkData, err := s.readFile(c.StoragePath, itemKey)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(chunkData)
		if hex.EncodeToString(sum[:]) != c.ContentHash {
			return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
		}
		out = append(out, chunkData...)
	}
	return out, nil
}

// Delete removes the file or chunk directory at storagePath.
func (s *Store) Delete(storagePath string) error {
	full := filepath.Join(s.root, storagePath)
	if err := os.RemoveAll(full); err != nil {
		return &perrors.Io{Underlying: err}
	}
	return nil
}

func (s *Store) writeFile(relPath string, data []byte, itemKey *[32]byte) error {
	full := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return &perrors.Io{Underlying: err}
	}
	payload := data
	if itemKey != nil {
		sealed, err := vaultcrypto.Seal(*itemKey, data)
		if err != nil {
			return err
		}
		payload = sealed
	}
	if err := os.WriteFile(full, payload, 0600); err != nil {
		return &perrors.Io{Underlying: err}
	}
	return nil
}

func (s *Store) readFile(relPath string, itemKey *[32]byte) ([]byte, error) {
	full := filepath.Join(s.root, relPath)
	f, err := os.Open(full)
	if err != nil {
		return nil, &perrors.Io{Underlying: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &perrors.Io{Underlying: err}
	}
	if itemKey != nil {
		return vaultcrypto.Open(*itemKey, data)
	}
	return data, nil
}
