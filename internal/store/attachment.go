package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// AttachmentRepo persists Attachment rows.
type AttachmentRepo struct{ db *sql.DB }

const attachmentColumns = `id, credential_id, filename, mime_type, size, content_hash, storage_path, chunk_count, chunk_size,
	is_encrypted, encryption_key_id, created_at, updated_at`

func (r *AttachmentRepo) Create(a *Attachment) error {
	_, err := r.db.Exec(`
		INSERT INTO attachments (`+attachmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CredentialID, a.Filename, a.MimeType, a.Size, a.ContentHash, a.StoragePath, a.ChunkCount, a.ChunkSize,
		boolToInt(a.IsEncrypted), a.EncryptionKeyID, a.CreatedAt.Format(time.RFC3339Nano), a.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *AttachmentRepo) FindByID(id string) (*Attachment, error) {
	row := r.db.QueryRow(`SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	return scanAttachment(row)
}

func (r *AttachmentRepo) FindAll(credentialID string) ([]*Attachment, error) {
	rows, err := r.db.Query(`SELECT `+attachmentColumns+` FROM attachments WHERE credential_id = ? ORDER BY filename`, credentialID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Attachment
	for rows.Next() {
		a, err := scanAttachmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AttachmentRepo) Update(a *Attachment) error {
	res, err := r.db.Exec(`
		UPDATE attachments SET filename=?, mime_type=?, size=?, content_hash=?, storage_path=?, chunk_count=?, chunk_size=?,
			is_encrypted=?, encryption_key_id=?, updated_at=?
		WHERE id=?`,
		a.Filename, a.MimeType, a.Size, a.ContentHash, a.StoragePath, a.ChunkCount, a.ChunkSize,
		boolToInt(a.IsEncrypted), a.EncryptionKeyID, a.UpdatedAt.Format(time.RFC3339Nano), a.ID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "attachment", a.ID)
}

func (r *AttachmentRepo) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM attachment_chunks WHERE attachment_id = ?`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	res, err := tx.Exec(`DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if err := checkRowsAffected(res, "attachment", id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanAttachment(row *sql.Row) (*Attachment, error)       { return scanAttachmentScanner(row) }
func scanAttachmentRows(rows *sql.Rows) (*Attachment, error) { return scanAttachmentScanner(rows) }

func scanAttachmentScanner(s rowScanner) (*Attachment, error) {
	var a Attachment
	var createdAt, updatedAt string
	err := s.Scan(&a.ID, &a.CredentialID, &a.Filename, &a.MimeType, &a.Size, &a.ContentHash, &a.StoragePath,
		&a.ChunkCount, &a.ChunkSize, &a.IsEncrypted, &a.EncryptionKeyID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "attachment"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &a, nil
}

// AttachmentChunkRepo persists AttachmentChunk rows.
type AttachmentChunkRepo struct{ db *sql.DB }

func (r *AttachmentChunkRepo) Create(c *AttachmentChunk) error {
	_, err := r.db.Exec(`
		INSERT INTO attachment_chunks (attachment_id, chunk_index, size, content_hash, storage_path)
		VALUES (?, ?, ?, ?, ?)`,
		c.AttachmentID, c.ChunkIndex, c.Size, c.ContentHash, c.StoragePath)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

// FindAll returns every chunk for an attachment, ordered densely by index.
func (r *AttachmentChunkRepo) FindAll(attachmentID string) ([]*AttachmentChunk, error) {
	rows, err := r.db.Query(`
		SELECT attachment_id, chunk_index, size, content_hash, storage_path
		FROM attachment_chunks WHERE attachment_id = ? ORDER BY chunk_index`, attachmentID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*AttachmentChunk
	for rows.Next() {
		var c AttachmentChunk
		if err := rows.Scan(&c.AttachmentID, &c.ChunkIndex, &c.Size, &c.ContentHash, &c.StoragePath); err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *AttachmentChunkRepo) Delete(attachmentID string, chunkIndex int) error {
	res, err := r.db.Exec(`DELETE FROM attachment_chunks WHERE attachment_id = ? AND chunk_index = ?`, attachmentID, chunkIndex)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "attachment_chunk", attachmentID)
}
