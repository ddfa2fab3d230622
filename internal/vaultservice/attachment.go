package vaultservice

import (
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
)

// credentialItemKey unwraps a credential's item key under the installed
// KEK, for use as the blob store's per-attachment encryption key.
func (s *Service) credentialItemKey(cred *store.Credential, kek vaultcrypto.KEK) (vaultcrypto.ItemKey, error) {
	return vaultcrypto.UnwrapItemKey(kek, cred.WrappedItemKey)
}

// PutAttachment encrypts and stores data under the owning credential's item
// key (the same key protecting the credential's own payload), then
// persists the Attachment row.
func (s *Service) PutAttachment(credentialID, filename, mimeType string, data []byte, chunkSize int, now time.Time) (*store.Attachment, error) {
	kek, err := s.requireUnlocked(now)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.Credentials.FindByID(credentialID)
	if err != nil {
		return nil, err
	}
	itemKey, err := s.credentialItemKey(cred, kek)
	if err != nil {
		return nil, err
	}
	defer itemKey.Zero()

	attachmentID := uuid.NewString()
	rawKey := [32]byte(itemKey)
	result, err := s.blobs.Put(credentialID, attachmentID, filename, data, chunkSize, &rawKey)
	if err != nil {
		return nil, err
	}

	att := &store.Attachment{
		ID:           attachmentID,
		CredentialID: credentialID,
		Filename:     filename,
		MimeType:     mimeType,
		Size:         result.Size,
		ContentHash:  result.ContentHash,
		StoragePath:  result.StoragePath,
		ChunkCount:   result.ChunkCount,
		ChunkSize:    result.ChunkSize,
		IsEncrypted:  result.IsEncrypted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Attachments.Create(att); err != nil {
		return nil, err
	}

	for _, c := range result.Chunks {
		chunk := &store.AttachmentChunk{
			AttachmentID: attachmentID,
			ChunkIndex:   c.Index,
			Size:         c.Size,
			ContentHash:  c.ContentHash,
			StoragePath:  c.StoragePath,
		}
		if err := s.store.AttachmentChunks.Create(chunk); err != nil {
			return nil, err
		}
	}

	return att, nil
}

// GetAttachment decrypts and returns an attachment's full content.
func (s *Service) GetAttachment(attachmentID string, now time.Time) ([]byte, error) {
	kek, err := s.requireUnlocked(now)
	if err != nil {
		return nil, err
	}
	att, err := s.store.Attachments.FindByID(attachmentID)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.Credentials.FindByID(att.CredentialID)
	if err != nil {
		return nil, err
	}
	itemKey, err := s.credentialItemKey(cred, kek)
	if err != nil {
		return nil, err
	}
	defer itemKey.Zero()

	var chunks []blobstore.Chunk
	if att.ChunkCount > 1 {
		stored, err := s.store.AttachmentChunks.FindAll(attachmentID)
		if err != nil {
			return nil, err
		}
		for _, c := range stored {
			chunks = append(chunks, blobstore.Chunk{
				Index:       c.ChunkIndex,
				Size:        c.Size,
				ContentHash: c.ContentHash,
				StoragePath: c.StoragePath,
			})
		}
	}

	rawKey := [32]byte(itemKey)
	return s.blobs.Get(att.StoragePath, chunks, &rawKey)
}
