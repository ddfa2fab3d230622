package migrate

// schemaV1 establishes the core entity tables named in spec.md §3.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		active_identity_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS identities (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id),
		name TEXT NOT NULL,
		identity_type TEXT NOT NULL,
		description TEXT,
		email TEXT,
		phone TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		attributes TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		UNIQUE(workspace_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		name TEXT NOT NULL,
		credential_type TEXT NOT NULL,
		security_level TEXT NOT NULL,
		url TEXT,
		username TEXT,
		notes TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		encrypted_data BLOB NOT NULL,
		wrapped_item_key BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		last_accessed TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_identity_id ON credentials(identity_id)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		credential_id TEXT NOT NULL REFERENCES credentials(id),
		filename TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		chunk_size INTEGER NOT NULL,
		is_encrypted INTEGER NOT NULL DEFAULT 0,
		encryption_key_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_credential_id ON attachments(credential_id)`,
	`CREATE TABLE IF NOT EXISTS attachment_chunks (
		attachment_id TEXT NOT NULL REFERENCES attachments(id),
		chunk_index INTEGER NOT NULL,
		size INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		PRIMARY KEY (attachment_id, chunk_index)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT,
		identity_id TEXT,
		credential_id TEXT,
		session_id TEXT,
		user_id TEXT,
		success INTEGER NOT NULL,
		error_message TEXT,
		metadata TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp)`,
	`CREATE TABLE IF NOT EXISTS change_history (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		change_type TEXT NOT NULL,
		previous_state TEXT,
		new_state TEXT,
		changed_by TEXT,
		timestamp TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_change_history_entity ON change_history(entity_type, entity_id)`,
	`CREATE TABLE IF NOT EXISTS user_auth (
		user_id TEXT PRIMARY KEY,
		password_hash BLOB NOT NULL,
		master_key_salt BLOB NOT NULL,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_changed_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS autolock_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		security_level TEXT NOT NULL,
		inactivity_timeout_secs INTEGER NOT NULL,
		absolute_timeout_secs INTEGER NOT NULL,
		sensitive_operation_timeout_secs INTEGER NOT NULL,
		max_concurrent_sessions INTEGER NOT NULL,
		enable_warnings INTEGER NOT NULL DEFAULT 0,
		warning_time_secs INTEGER NOT NULL DEFAULT 0,
		force_lock_sensitive INTEGER NOT NULL DEFAULT 0,
		activity_grace_period_secs INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_default INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		policy_id TEXT REFERENCES autolock_policies(id),
		created_at TEXT NOT NULL,
		last_activity TEXT NOT NULL,
		last_sensitive_activity TEXT,
		expires_at TEXT NOT NULL,
		locked INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
}

// schemaV2 adds the supplementary fields and wallet-related tables from the
// domain-stack expansion (SPEC_FULL.md §3).
var schemaV2 = []string{
	`ALTER TABLE identities ADD COLUMN avatar_color TEXT`,
	`ALTER TABLE credentials ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
	`ALTER TABLE credentials ADD COLUMN expires_at TEXT`,
	`CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		name TEXT NOT NULL,
		chain TEXT NOT NULL,
		encrypted_private_key BLOB NOT NULL,
		wrapped_item_key BLOB NOT NULL,
		public_key TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallets_identity_id ON wallets(identity_id)`,
	`CREATE TABLE IF NOT EXISTS wallet_addresses (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		chain TEXT NOT NULL,
		derivation_path TEXT NOT NULL,
		address TEXT NOT NULL,
		public_key TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_addresses_wallet_id ON wallet_addresses(wallet_id)`,
}
