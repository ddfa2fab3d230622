package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// SessionRepo persists Session rows.
type SessionRepo struct{ db *sql.DB }

const sessionColumns = `id, user_id, policy_id, created_at, last_activity, last_sensitive_activity, expires_at, locked`

func (r *SessionRepo) Create(s *Session) error {
	_, err := r.db.Exec(`INSERT INTO sessions (`+sessionColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.PolicyID, s.CreatedAt.Format(time.RFC3339Nano), s.LastActivity.Format(time.RFC3339Nano),
		formatTimePtr(s.LastSensitiveActivity), s.ExpiresAt.Format(time.RFC3339Nano), boolToInt(s.Locked))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *SessionRepo) FindByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *SessionRepo) FindByUserID(userID string) ([]*Session, error) {
	rows, err := r.db.Query(`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *SessionRepo) FindAll() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *SessionRepo) Update(s *Session) error {
	res, err := r.db.Exec(`
		UPDATE sessions SET last_activity=?, last_sensitive_activity=?, expires_at=?, locked=?
		WHERE id=?`,
		s.LastActivity.Format(time.RFC3339Nano), formatTimePtr(s.LastSensitiveActivity),
		s.ExpiresAt.Format(time.RFC3339Nano), boolToInt(s.Locked), s.ID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "session", s.ID)
}

func (r *SessionRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "session", id)
}

// CountActiveForUser returns how many non-expired, unlocked sessions a user
// currently holds in the sessions table. The autolock manager enforces
// max_concurrent_sessions from its own in-memory session map, not from this
// count.
func (r *SessionRepo) CountActiveForUser(userID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM sessions WHERE user_id = ? AND locked = 0 AND expires_at > ?`,
		userID, now.Format(time.RFC3339Nano)).Scan(&n)
	if err != nil {
		return 0, &perrors.Storage{Underlying: err}
	}
	return n, nil
}

func scanSession(row *sql.Row) (*Session, error)       { return scanSessionScanner(row) }
func scanSessionRows(rows *sql.Rows) (*Session, error) { return scanSessionScanner(rows) }

func scanSessionScanner(s rowScanner) (*Session, error) {
	var sess Session
	var createdAt, lastActivity, expiresAt string
	var lastSensitive sql.NullString
	err := s.Scan(&sess.ID, &sess.UserID, &sess.PolicyID, &createdAt, &lastActivity, &lastSensitive, &expiresAt, &sess.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "session"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if sess.LastActivity, err = time.Parse(time.RFC3339Nano, lastActivity); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if sess.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if lastSensitive.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastSensitive.String)
		if err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		sess.LastSensitiveActivity = &t
	}
	return &sess, nil
}
