package store

import (
	"database/sql"
	"errors"

	"github.com/persona-vault/persona/internal/perrors"
)

// AutoLockPolicyRepo persists AutoLockPolicy rows.
type AutoLockPolicyRepo struct{ db *sql.DB }

const autoLockPolicyColumns = `id, name, security_level, inactivity_timeout_secs, absolute_timeout_secs,
	sensitive_operation_timeout_secs, max_concurrent_sessions, enable_warnings, warning_time_secs,
	force_lock_sensitive, activity_grace_period_secs, is_active, is_default`

func (r *AutoLockPolicyRepo) Create(p *AutoLockPolicy) error {
	_, err := r.db.Exec(`INSERT INTO autolock_policies (`+autoLockPolicyColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.SecurityLevel, p.InactivityTimeoutSecs, p.AbsoluteTimeoutSecs, p.SensitiveOperationTimeoutSecs,
		p.MaxConcurrentSessions, boolToInt(p.EnableWarnings), p.WarningTimeSecs, boolToInt(p.ForceLockSensitive),
		p.ActivityGracePeriodSecs, boolToInt(p.IsActive), boolToInt(p.IsDefault))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *AutoLockPolicyRepo) FindByID(id string) (*AutoLockPolicy, error) {
	row := r.db.QueryRow(`SELECT `+autoLockPolicyColumns+` FROM autolock_policies WHERE id = ?`, id)
	return scanAutoLockPolicy(row)
}

// FindDefault returns the workspace's default policy.
func (r *AutoLockPolicyRepo) FindDefault() (*AutoLockPolicy, error) {
	row := r.db.QueryRow(`SELECT ` + autoLockPolicyColumns + ` FROM autolock_policies WHERE is_default = 1 LIMIT 1`)
	return scanAutoLockPolicy(row)
}

func (r *AutoLockPolicyRepo) FindAll() ([]*AutoLockPolicy, error) {
	rows, err := r.db.Query(`SELECT ` + autoLockPolicyColumns + ` FROM autolock_policies ORDER BY name`)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*AutoLockPolicy
	for rows.Next() {
		p, err := scanAutoLockPolicyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *AutoLockPolicyRepo) Update(p *AutoLockPolicy) error {
	res, err := r.db.Exec(`
		UPDATE autolock_policies SET name=?, security_level=?, inactivity_timeout_secs=?, absolute_timeout_secs=?,
			sensitive_operation_timeout_secs=?, max_concurrent_sessions=?, enable_warnings=?, warning_time_secs=?,
			force_lock_sensitive=?, activity_grace_period_secs=?, is_active=?, is_default=?
		WHERE id=?`,
		p.Name, p.SecurityLevel, p.InactivityTimeoutSecs, p.AbsoluteTimeoutSecs, p.SensitiveOperationTimeoutSecs,
		p.MaxConcurrentSessions, boolToInt(p.EnableWarnings), p.WarningTimeSecs, boolToInt(p.ForceLockSensitive),
		p.ActivityGracePeriodSecs, boolToInt(p.IsActive), boolToInt(p.IsDefault), p.ID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "autolock_policy", p.ID)
}

func (r *AutoLockPolicyRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM autolock_policies WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "autolock_policy", id)
}

func scanAutoLockPolicy(row *sql.Row) (*AutoLockPolicy, error)       { return scanAutoLockPolicyScanner(row) }
func scanAutoLockPolicyRows(rows *sql.Rows) (*AutoLockPolicy, error) { return scanAutoLockPolicyScanner(rows) }

func scanAutoLockPolicyScanner(s rowScanner) (*AutoLockPolicy, error) {
	var p AutoLockPolicy
	err := s.Scan(&p.ID, &p.Name, &p.SecurityLevel, &p.InactivityTimeoutSecs, &p.AbsoluteTimeoutSecs,
		&p.SensitiveOperationTimeoutSecs, &p.MaxConcurrentSessions, &p.EnableWarnings, &p.WarningTimeSecs,
		&p.ForceLockSensitive, &p.ActivityGracePeriodSecs, &p.IsActive, &p.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "autolock_policy"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &p, nil
}
