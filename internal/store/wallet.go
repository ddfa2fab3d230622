package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
)

// WalletRepo persists Wallet rows.
type WalletRepo struct{ db *sql.DB }

const walletColumns = `id, identity_id, name, chain, encrypted_private_key, wrapped_item_key, public_key, created_at`

func (r *WalletRepo) Create(w *Wallet) error {
	_, err := r.db.Exec(`INSERT INTO wallets (`+walletColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		w.ID, w.IdentityID, w.Name, w.Chain, w.EncryptedPrivateKey, w.WrappedItemKey, w.PublicKey,
		w.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

func (r *WalletRepo) FindByID(id string) (*Wallet, error) {
	row := r.db.QueryRow(`SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	return scanWallet(row)
}

func (r *WalletRepo) FindAll(identityID string) ([]*Wallet, error) {
	rows, err := r.db.Query(`SELECT `+walletColumns+` FROM wallets WHERE identity_id = ? ORDER BY name`, identityID)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	defer rows.Close()
	var out []*Wallet
	for rows.Next() {
		w, err := scanWalletRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WalletRepo) Update(w *Wallet) error {
	res, err := r.db.Exec(`
		UPDATE wallets SET name=?, encrypted_private_key=?, wrapped_item_key=?, public_key=? WHERE id=?`,
		w.Name, w.EncryptedPrivateKey, w.WrappedItemKey, w.PublicKey, w.ID)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return checkRowsAffected(res, "wallet", w.ID)
}

func (r *WalletRepo) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM wallet_addresses WHERE wallet_id = ?`, id); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	res, err := tx.Exec(`DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if err := checkRowsAffected(res, "wallet", id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanWallet(row *sql.Row) (*Wallet, error)       { return scanWalletScanner(row) }
func scanWalletRows(rows *sql.Rows) (*Wallet, error) { return scanWalletScanner(rows) }

func scanWalletScanner(s rowScanner) (*Wallet, error) {
	var w Wallet
	var createdAt string
	err := s.Scan(&w.ID, &w.IdentityID, &w.Name, &w.Chain, &w.EncryptedPrivateKey, &w.WrappedItemKey, &w.PublicKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFound{Entity: "wallet"}
	}
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	if w.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	return &w, nil
}
