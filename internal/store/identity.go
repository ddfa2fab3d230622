package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// IdentityRepo persists Identity rows.
type IdentityRepo struct{ db *sql.DB }

func (r *IdentityRepo) Create(i *Identity) error {
	tags, err := json.Marshal(i.Tags)
	if err != nil {
		return &perrors.InvalidInput{Field: "tags", Reason: err.Error()}
	}
	attrs, err := json.Marshal(i.Attributes)
	if err != nil {
		return &perrors.InvalidInput{Field: "attributes", Reason: err.Error()}
	}
	_, err = r.db.Exec(`
		INSERT INTO identities (id, workspace_id, name, identity_type, description, email, phone, tags, attributes, avatar_color, created_at, updated_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.WorkspaceID, i.Name, i.IdentityType, i.Description, i.Email, i.Phone, string(tags), string(attrs), i.AvatarColor,
		i.CreatedAt.Format(time.RFC3339Nano), i.UpdatedAt.Format(time.RFC3339Nano), boolToInt(i.IsActive))
	if err != nil {
		if isUniqueViolation(err) {
			return &perrors.AlreadyExists{Entity: "identity", Key: i.Name}
		}
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *IdentityRepo) FindByID(id string) (*Identity, error) {
	row := r.db.QueryRow(`
		SELECT id, workspace_id, name, identity_type, description, email, phone, tags, attributes, avatar_color, created_at, updated_at, is_active
		FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *IdentityRepo) FindAll(workspaceID string) ([]*Identity, error) {
	rows, err := r.db.Query(`
		SELECT id, workspace_id, name, identity_type, description, email, phone, tags, attributes, avatar_color, created_at, updated_at, is_active
		FROM identities WHERE workspace_id = ? ORDER BY name`, workspaceID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()

	var out []*Identity
	for rows.Next() {
		ident, err := scanIdentityRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

// FindByName finds an identity by its per-workspace unique name.
func (r *IdentityRepo) FindByName(workspaceID, name string) (*Identity, error) {
	row := r.db.QueryRow(`
		SELECT id, workspace_id, name, identity_type, description, email, phone, tags, attributes, avatar_color, created_at, updated_at, is_active
		FROM identities WHERE workspace_id = ? AND name = ?`, workspaceID, name)
	return scanIdentity(row)
}

func (r *IdentityRepo) Update(i *Identity) error {
	tags, err := json.Marshal(i.Tags)
	if err != nil {
		return &perrors.InvalidInput{Field: "tags", Reason: err.Error()}
	}
	attrs, err := json.Marshal(i.Attributes)
	if err != nil {
		return &perrors.InvalidInput{Field: "attributes", Reason: err.Error()}
	}
	res, err := r.db.Exec(`
		UPDATE identities SET name=?, identity_type=?, description=?, email=?, phone=?, tags=?, attributes=?, avatar_color=?, updated_at=?, is_active=?
		WHERE id=?`,
		i.Name, i.IdentityType, i.Description, i.Email, i.Phone, string(tags), string(attrs), i.AvatarColor,
		i.UpdatedAt.Format(time.RFC3339Nano), boolToInt(i.IsActive), i.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &perrors.AlreadyExists{Entity: "identity", Key: i.Name}
		}
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "identity", i.ID)
}

// Delete removes an identity and cascades to its credentials and attachments.
func (r *IdentityRepo) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM attachment_chunks WHERE attachment_id IN (
			SELECT id FROM attachments WHERE credential_id IN (
				SELECT id FROM credentials WHERE identity_id = ?))`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if _, err := tx.Exec(`
		DELETE FROM attachments WHERE credential_id IN (
			SELECT id FROM credentials WHERE identity_id = ?)`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if _, err := tx.Exec(`DELETE FROM credentials WHERE identity_id = ?`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	res, err := tx.Exec(`DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if err := checkRowsAffected(res, "identity", id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	return scanIdentityScanner(row)
}

func scanIdentityRows(rows *sql.Rows) (*Identity, error) {
	return scanIdentityScanner(rows)
}

func scanIdentityScanner(s rowScanner) (*Identity, error) {
	var i Identity
	var tags, attrs string
	var createdAt, updatedAt string
	err := s.Scan(&i.ID, &i.WorkspaceID, &i.Name, &i.IdentityType, &i.Description, &i.Email, &i.Phone,
		&tags, &attrs, &i.AvatarColor, &createdAt, &updatedAt, &i.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "identity"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if err := json.Unmarshal([]byte(tags), &i.Tags); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if err := json.Unmarshal([]byte(attrs), &i.Attributes); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if i.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if i.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &i, nil
}
