package store

import "time"

// Workspace is the filesystem-rooted container a process operates against.
type Workspace struct {
	ID               string
	Path             string
	Name             string
	ActiveIdentityID *string
}

// Identity is a named persona a credential belongs to.
type Identity struct {
	ID           string
	WorkspaceID  string
	Name         string
	IdentityType string
	Description  *string
	Email        *string
	Phone        *string
	Tags         []string
	Attributes   map[string]string
	AvatarColor  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// Credential is an encrypted secret owned by an Identity.
type Credential struct {
	ID             string
	IdentityID     string
	Name           string
	CredentialType string
	SecurityLevel  string
	URL            *string
	Username       *string
	Notes          *string
	Tags           []string
	Metadata       map[string]string
	EncryptedData  []byte
	WrappedItemKey []byte
	Version        int
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsActive       bool
	IsFavorite     bool
	LastAccessed   *time.Time
}

// Attachment is a file owned by a Credential, stored as content-addressed
// chunks in the blob store.
type Attachment struct {
	ID              string
	CredentialID    string
	Filename        string
	MimeType        string
	Size            int64
	ContentHash     string
	StoragePath     string
	ChunkCount      int
	ChunkSize       int
	IsEncrypted     bool
	EncryptionKeyID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AttachmentChunk is one densely-numbered chunk of an Attachment's bytes.
type AttachmentChunk struct {
	AttachmentID string
	ChunkIndex   int
	Size         int64
	ContentHash  string
	StoragePath  string
}

// AuditLog is one append-only record of a sensitive action.
type AuditLog struct {
	ID           string
	Timestamp    time.Time
	Action       string
	ResourceType string
	ResourceID   *string
	IdentityID   *string
	CredentialID *string
	SessionID    *string
	UserID       *string
	Success      bool
	ErrorMessage *string
	Metadata     map[string]string
}

// ChangeHistory is one append-only version record for an entity.
type ChangeHistory struct {
	ID             string
	EntityType     string
	EntityID       string
	Version        int
	ChangeType     string
	PreviousState  *string
	NewState       *string
	ChangedBy      *string
	Timestamp      time.Time
}

// UserAuth is the single-user MVP's password authentication record.
type UserAuth struct {
	UserID            string
	PasswordHash      []byte
	MasterKeySalt     []byte
	FailedAttempts    int
	LockedUntil       *time.Time
	PasswordChangedAt time.Time
}

// AutoLockPolicy describes one named session-timeout/concurrency policy.
type AutoLockPolicy struct {
	ID                             string
	Name                           string
	SecurityLevel                  string
	InactivityTimeoutSecs          int
	AbsoluteTimeoutSecs            int
	SensitiveOperationTimeoutSecs  int
	MaxConcurrentSessions          int
	EnableWarnings                 bool
	WarningTimeSecs                int
	ForceLockSensitive             bool
	ActivityGracePeriodSecs        int
	IsActive                       bool
	IsDefault                      bool
}

// Session is one authenticated session bound to a user and an AutoLockPolicy.
type Session struct {
	ID                    string
	UserID                string
	PolicyID              *string
	CreatedAt             time.Time
	LastActivity          time.Time
	LastSensitiveActivity *time.Time
	ExpiresAt             time.Time
	Locked                bool
}

// Wallet is a cryptocurrency key pair owned by an Identity, with its private
// key AEAD-encrypted under a wallet-specific item key.
type Wallet struct {
	ID                  string
	IdentityID          string
	Name                string
	Chain               string
	EncryptedPrivateKey []byte
	WrappedItemKey      []byte
	PublicKey           string
	CreatedAt           time.Time
}

// WalletAddress is one derived receive address for a Wallet.
type WalletAddress struct {
	ID             string
	WalletID       string
	Chain          string
	DerivationPath string
	Address        string
	PublicKey      string
	CreatedAt      time.Time
}
