package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// WalletAddressRepo persists WalletAddress rows.
type WalletAddressRepo struct{ db *sql.DB }

const walletAddressColumns = `id, wallet_id, chain, derivation_path, address, public_key, created_at`

func (r *WalletAddressRepo) Create(a *WalletAddress) error {
	_, err := r.db.Exec(`INSERT INTO wallet_addresses (`+walletAddressColumns+`) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.WalletID, a.Chain, a.DerivationPath, a.Address, a.PublicKey, a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *WalletAddressRepo) FindByID(id string) (*WalletAddress, error) {
	row := r.db.QueryRow(`SELECT `+walletAddressColumns+` FROM wallet_addresses WHERE id = ?`, id)
	return scanWalletAddress(row)
}

func (r *WalletAddressRepo) FindAll(walletID string) ([]*WalletAddress, error) {
	rows, err := r.db.Query(`SELECT `+walletAddressColumns+` FROM wallet_addresses WHERE wallet_id = ? ORDER BY created_at`, walletID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*WalletAddress
	for rows.Next() {
		a, err := scanWalletAddressRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *WalletAddressRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM wallet_addresses WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "wallet_address", id)
}

func scanWalletAddress(row *sql.Row) (*WalletAddress, error)       { return scanWalletAddressScanner(row) }
func scanWalletAddressRows(rows *sql.Rows) (*WalletAddress, error) { return scanWalletAddressScanner(rows) }

func scanWalletAddressScanner(s rowScanner) (*WalletAddress, error) {
	var a WalletAddress
	var createdAt string
	err := s.Scan(&a.ID, &a.WalletID, &a.Chain, &a.DerivationPath, &a.Address, &a.PublicKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "wallet_address"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &a, nil
}
