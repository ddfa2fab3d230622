// Package store implements Persona's repository-per-entity persistence
// layer over a single embedded SQLite file opened in WAL mode.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/store/migrate"
)

// Store aggregates the per-entity repositories over one *sql.DB handle.
type Store struct {
	db *sql.DB

	Identities       *IdentityRepo
	Credentials      *CredentialRepo
	Attachments      *AttachmentRepo
	AttachmentChunks *AttachmentChunkRepo
	Workspaces       *WorkspaceRepo
	AuditLogs        *AuditLogRepo
	ChangeHistory    *ChangeHistoryRepo
	UserAuths        *UserAuthRepo
	Sessions         *SessionRepo
	AutoLockPolicies *AutoLockPolicyRepo
	Wallets          *WalletRepo
	WalletAddresses  *WalletAddressRepo
}

// Open opens (creating if absent) the vault SQLite file at path in WAL mode
// and applies any pending schema migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &perrors.Storage{Underlying: err}
	}
	db.SetMaxOpenConns(1) // single-writer embedded file; avoids SQLITE_BUSY under WAL

	if err := migrate.Apply(db); err != nil {
		db.Close()
		return nil, &perrors.Storage{Underlying: err}
	}

	return &Store{
		db:               db,
		Identities:       &IdentityRepo{db: db},
		Credentials:      &CredentialRepo{db: db},
		Attachments:      &AttachmentRepo{db: db},
		AttachmentChunks: &AttachmentChunkRepo{db: db},
		Workspaces:       &WorkspaceRepo{db: db},
		AuditLogs:        &AuditLogRepo{db: db},
		ChangeHistory:    &ChangeHistoryRepo{db: db},
		UserAuths:        &UserAuthRepo{db: db},
		Sessions:         &SessionRepo{db: db},
		AutoLockPolicies: &AutoLockPolicyRepo{db: db},
		Wallets:          &WalletRepo{db: db},
		WalletAddresses:  &WalletAddressRepo{db: db},
	}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	if err := s.db.Ping(); err != nil {
		return &perrors.Storage{Underlying: err}
	}
	return nil
}

// DB exposes the underlying handle for callers (e.g. the vault service) that
// need a single serializable transaction spanning multiple repositories.
func (s *Store) DB() *sql.DB {
	return s.db
}
