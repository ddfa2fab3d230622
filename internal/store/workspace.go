package store

import (
	"database/sql"
	"errors"

	"github.com/persona-vault/persona/internal/perrors"
)

// WorkspaceRepo persists Workspace rows.
type WorkspaceRepo struct{ db *sql.DB }

func (r *WorkspaceRepo) Create(w *Workspace) error {
	_, err := r.db.Exec(`INSERT INTO workspaces (id, path, name, active_identity_id) VALUES (?, ?, ?, ?)`,
		w.ID, w.Path, w.Name, w.ActiveIdentityID)
	if err != nil {
		if isUniqueViolation(err) {
			return &perrors.AlreadyExists{Entity: "workspace", Key: w.Path}
		}
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *WorkspaceRepo) FindByID(id string) (*Workspace, error) {
	row := r.db.QueryRow(`SELECT id, path, name, active_identity_id FROM workspaces WHERE id = ?`, id)
	return scanWorkspace(row)
}

// FindByPath finds the workspace rooted at the given filesystem path.
func (r *WorkspaceRepo) FindByPath(path string) (*Workspace, error) {
	row := r.db.QueryRow(`SELECT id, path, name, active_identity_id FROM workspaces WHERE path = ?`, path)
	return scanWorkspace(row)
}

func (r *WorkspaceRepo) FindAll() ([]*Workspace, error) {
	rows, err := r.db.Query(`SELECT id, path, name, active_identity_id FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Path, &w.Name, &w.ActiveIdentityID); err != nil {
			return nil, &perrors.Storage{Underlying: err}
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (r *WorkspaceRepo) Update(w *Workspace) error {
	res, err := r.db.Exec(`UPDATE workspaces SET name=?, active_identity_id=? WHERE id=?`, w.Name, w.ActiveIdentityID, w.ID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "workspace", w.ID)
}

func (r *WorkspaceRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "workspace", id)
}

func scanWorkspace(row *sql.Row) (*Workspace, error) {
	var w Workspace
	err := row.Scan(&w.ID, &w.Path, &w.Name, &w.ActiveIdentityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "workspace"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &w, nil
}
