package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// UserAuthRepo persists the single (zero-or-one per workspace) UserAuth row.
type UserAuthRepo struct{ db *sql.DB }

func (r *UserAuthRepo) Create(u *UserAuth) error {
	_, err := r.db.Exec(`
		INSERT INTO user_auth (user_id, password_hash, master_key_salt, failed_attempts, locked_until, password_changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.UserID, u.PasswordHash, u.MasterKeySalt, u.FailedAttempts, formatTimePtr(u.LockedUntil),
		u.PasswordChangedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return &perrors.AlreadyExists{Entity: "user_auth", Key: u.UserID}
		}
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *UserAuthRepo) FindByID(userID string) (*UserAuth, error) {
	row := r.db.QueryRow(`
		SELECT user_id, password_hash, master_key_salt, failed_attempts, locked_until, password_changed_at
		FROM user_auth WHERE user_id = ?`, userID)
	return scanUserAuth(row)
}

// FindSingle returns the workspace's one UserAuth row, per the single-user
// MVP invariant of at most one row existing.
func (r *UserAuthRepo) FindSingle() (*UserAuth, error) {
	row := r.db.QueryRow(`
		SELECT user_id, password_hash, master_key_salt, failed_attempts, locked_until, password_changed_at
		FROM user_auth LIMIT 1`)
	return scanUserAuth(row)
}

func (r *UserAuthRepo) Update(u *UserAuth) error {
	res, err := r.db.Exec(`
		UPDATE user_auth SET password_hash=?, master_key_salt=?, failed_attempts=?, locked_until=?, password_changed_at=?
		WHERE user_id=?`,
		u.PasswordHash, u.MasterKeySalt, u.FailedAttempts, formatTimePtr(u.LockedUntil),
		u.PasswordChangedAt.Format(time.RFC3339Nano), u.UserID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "user_auth", u.UserID)
}

func (r *UserAuthRepo) Delete(userID string) error {
	res, err := r.db.Exec(`DELETE FROM user_auth WHERE user_id = ?`, userID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "user_auth", userID)
}

func scanUserAuth(row *sql.Row) (*UserAuth, error) {
	var u UserAuth
	var lockedUntil sql.NullString
	var changedAt string
	err := row.Scan(&u.UserID, &u.PasswordHash, &u.MasterKeySalt, &u.FailedAttempts, &lockedUntil, &changedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "user_auth"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if u.PasswordChangedAt, err = time.Parse(time.RFC3339Nano, changedAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if lockedUntil.Valid {
		t, err := time.Parse(time.RFC3339Nano, lockedUntil.String)
		if err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		u.LockedUntil = &t
	}
	return &u, nil
}
