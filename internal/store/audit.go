package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// AuditLogRepo persists the append-only AuditLog table. There is
// intentionally no Update or Delete: audit entries are immutable once
// written.
type AuditLogRepo struct{ db *sql.DB }

func (r *AuditLogRepo) Create(a *AuditLog) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return &perrors.InvalidInput{Field: "metadata", Reason: err.Error()}
	}
	_, dbErr := r.db.Exec(`
		INSERT INTO audit_logs (id, timestamp, action, resource_type, resource_id, identity_id, credential_id, session_id, user_id, success, error_message, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp.Format(time.RFC3339Nano), a.Action, a.ResourceType, a.ResourceID,
		a.IdentityID, a.CredentialID, a.SessionID, a.UserID, boolToInt(a.Success), a.ErrorMessage, string(metadata))
	if dbErr != nil {
		return &perrors.Storage{Underlying: dbErr}
	}
	return nil
}

func (r *AuditLogRepo) FindByID(id string) (*AuditLog, error) {
	row := r.db.QueryRow(`
		SELECT id, timestamp, action, resource_type, resource_id, identity_id, credential_id, session_id, user_id, success, error_message, metadata
		FROM audit_logs WHERE id = ?`, id)
	return scanAuditLog(row)
}

// FindAll returns audit entries newest-first, optionally scoped to a
// resource type, bounded by limit.
func (r *AuditLogRepo) FindAll(resourceType string, limit int) ([]*AuditLog, error) {
	var rows *sql.Rows
	var err error
	if resourceType == "" {
		rows, err = r.db.Query(`
			SELECT id, timestamp, action, resource_type, resource_id, identity_id, credential_id, session_id, user_id, success, error_message, metadata
			FROM audit_logs ORDER BY timestamp DESC LIMIT ?`, limit)
	} else {
		rows, err = r.db.Query(`
			SELECT id, timestamp, action, resource_type, resource_id, identity_id, credential_id, session_id, user_id, success, error_message, metadata
			FROM audit_logs WHERE resource_type = ? ORDER BY timestamp DESC LIMIT ?`, resourceType, limit)
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()

	var out []*AuditLog
	for rows.Next() {
		a, err := scanAuditLogRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAuditLog(row *sql.Row) (*AuditLog, error)       { return scanAuditLogScanner(row) }
func scanAuditLogRows(rows *sql.Rows) (*AuditLog, error) { return scanAuditLogScanner(rows) }

func scanAuditLogScanner(s rowScanner) (*AuditLog, error) {
	var a AuditLog
	var ts string
	var metadata string
	err := s.Scan(&a.ID, &ts, &a.Action, &a.ResourceType, &a.ResourceID, &a.IdentityID, &a.CredentialID,
		&a.SessionID, &a.UserID, &a.Success, &a.ErrorMessage, &metadata)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if a.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &a, nil
}
