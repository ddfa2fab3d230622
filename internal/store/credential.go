package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// CredentialRepo persists Credential rows.
type CredentialRepo struct{ db *sql.DB }

func (r *CredentialRepo) Create(c *Credential) error {
	tags, metadata, err := marshalTagsMetadata(c.Tags, c.Metadata)
	if err != nil {
		return err
	}
	_, dbErr := r.db.Exec(`
		INSERT INTO credentials (id, identity_id, name, credential_type, security_level, url, username, notes, tags, metadata,
			encrypted_data, wrapped_item_key, version, expires_at, created_at, updated_at, is_active, is_favorite, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.IdentityID, c.Name, c.CredentialType, c.SecurityLevel, c.URL, c.Username, c.Notes, tags, metadata,
		c.EncryptedData, c.WrappedItemKey, c.Version, formatTimePtr(c.ExpiresAt),
		c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano),
		boolToInt(c.IsActive), boolToInt(c.IsFavorite), formatTimePtr(c.LastAccessed))
	if dbErr != nil {
		return &perrors.Storage{Underlying: dbErr}
	}
	return nil
}

const credentialColumns = `id, identity_id, name, credential_type, security_level, url, username, notes, tags, metadata,
	encrypted_data, wrapped_item_key, version, expires_at, created_at, updated_at, is_active, is_favorite, last_accessed`

func (r *CredentialRepo) FindByID(id string) (*Credential, error) {
	row := r.db.QueryRow(`SELECT `+credentialColumns+` FROM credentials WHERE id = ?`, id)
	return scanCredential(row)
}

func (r *CredentialRepo) FindAll(identityID string) ([]*Credential, error) {
	rows, err := r.db.Query(`SELECT `+credentialColumns+` FROM credentials WHERE identity_id = ? ORDER BY name`, identityID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Credential
	for rows.Next() {
		c, err := scanCredentialRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByType returns credentials of a given credential_type across every
// identity — used by the SSH agent (SshKey) and the bridge (Password,
// TwoFactor) to enumerate candidates without knowing an identity ID ahead of
// time.
func (r *CredentialRepo) FindByType(credentialType string) ([]*Credential, error) {
	rows, err := r.db.Query(`SELECT `+credentialColumns+` FROM credentials WHERE credential_type = ? AND is_active = 1`, credentialType)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Credential
	for rows.Next() {
		c, err := scanCredentialRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update persists c, requiring expectedVersion to match the row's current
// version (optimistic concurrency) and bumping the stored version by one.
func (r *CredentialRepo) Update(c *Credential, expectedVersion int) error {
	tags, metadata, err := marshalTagsMetadata(c.Tags, c.Metadata)
	if err != nil {
		return err
	}
	res, dbErr := r.db.Exec(`
		UPDATE credentials SET name=?, credential_type=?, security_level=?, url=?, username=?, notes=?, tags=?, metadata=?,
			encrypted_data=?, wrapped_item_key=?, version=version+1, expires_at=?, updated_at=?, is_active=?, is_favorite=?, last_accessed=?
		WHERE id=? AND version=?`,
		c.Name, c.CredentialType, c.SecurityLevel, c.URL, c.Username, c.Notes, tags, metadata,
		c.EncryptedData, c.WrappedItemKey, formatTimePtr(c.ExpiresAt), c.UpdatedAt.Format(time.RFC3339Nano),
		boolToInt(c.IsActive), boolToInt(c.IsFavorite), formatTimePtr(c.LastAccessed), c.ID, expectedVersion)
	if dbErr != nil {
		return &perrors.Storage{Underlying: dbErr}
	}
	return checkRowsAffected(res, "credential", c.ID)
}

func (r *CredentialRepo) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM attachment_chunks WHERE attachment_id IN (SELECT id FROM attachments WHERE credential_id = ?)`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if _, err := tx.Exec(`DELETE FROM attachments WHERE credential_id = ?`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	res, err := tx.Exec(`DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if err := checkRowsAffected(res, "credential", id); err != nil {
		return err
	}
	return tx.Commit()
}

// TouchLastAccessed records an access without bumping the optimistic version
// (viewing a secret is not a mutation of its content).
func (r *CredentialRepo) TouchLastAccessed(id string, at time.Time) error {
	res, err := r.db.Exec(`UPDATE credentials SET last_accessed=? WHERE id=?`, at.Format(time.RFC3339Nano), id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "credential", id)
}

func marshalTagsMetadata(tags []string, metadata map[string]string) (string, string, error) {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", &perrors.InvalidInput{Field: "tags", Reason: err.Error()}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", "", &perrors.InvalidInput{Field: "metadata", Reason: err.Error()}
	}
	return string(tagsJSON), string(metaJSON), nil
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func scanCredential(row *sql.Row) (*Credential, error)   { return scanCredentialScanner(row) }
func scanCredentialRows(rows *sql.Rows) (*Credential, error) { return scanCredentialScanner(rows) }

func scanCredentialScanner(s rowScanner) (*Credential, error) {
	var c Credential
	var tags, metadata string
	var createdAt, updatedAt string
	var expiresAt, lastAccessed sql.NullString
	err := s.Scan(&c.ID, &c.IdentityID, &c.Name, &c.CredentialType, &c.SecurityLevel, &c.URL, &c.Username, &c.Notes,
		&tags, &metadata, &c.EncryptedData, &c.WrappedItemKey, &c.Version, &expiresAt,
		&createdAt, &updatedAt, &c.IsActive, &c.IsFavorite, &lastAccessed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "credential"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		c.ExpiresAt = &t
	}
	if lastAccessed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastAccessed.String)
		if err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		c.LastAccessed = &t
	}
	return &c, nil
}
