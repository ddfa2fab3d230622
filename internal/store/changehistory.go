package store

import (
	"database/sql"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// ChangeHistoryRepo persists the append-only ChangeHistory table. There is
// intentionally no Update or Delete.
type ChangeHistoryRepo struct{ db *sql.DB }

func (r *ChangeHistoryRepo) Create(c *ChangeHistory) error {
	_, err := r.db.Exec(`
		INSERT INTO change_history (id, entity_type, entity_id, version, change_type, previous_state, new_state, changed_by, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.EntityType, c.EntityID, c.Version, c.ChangeType, c.PreviousState, c.NewState, c.ChangedBy,
		c.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

// FindAll returns every version record for one entity, ascending by version.
// Versions are stored as given: this repository does not check that they
// increase strictly or without gaps.
func (r *ChangeHistoryRepo) FindAll(entityType, entityID string) ([]*ChangeHistory, error) {
	rows, err := r.db.Query(`
		SELECT id, entity_type, entity_id, version, change_type, previous_state, new_state, changed_by, timestamp
		FROM change_history WHERE entity_type = ? AND entity_id = ? ORDER BY version`, entityType, entityID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()

	var out []*ChangeHistory
	for rows.Next() {
		var c ChangeHistory
		var ts string
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.Version, &c.ChangeType, &c.PreviousState, &c.NewState, &c.ChangedBy, &ts); err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		if c.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// LatestVersion returns the highest recorded version for an entity, or 0 if
// none exists.
func (r *ChangeHistoryRepo) LatestVersion(entityType, entityID string) (int, error) {
	var v sql.NullInt64
	err := r.db.QueryRow(`
		SELECT MAX(version) FROM change_history WHERE entity_type = ? AND entity_id = ?`, entityType, entityID).Scan(&v)
	if err != nil {
		return 0, &perrors.Storage{Underlying: err}
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}
