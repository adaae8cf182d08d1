package sqldb

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name VARCHAR(64) NOT NULL,
		role VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY,
		company_name VARCHAR(100) NOT NULL,
		owner_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stores (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		store_name VARCHAR(100) NOT NULL,
		store_location VARCHAR(255) NOT NULL DEFAULT '',
		store_phone VARCHAR(32) NOT NULL DEFAULT '',
		store_email VARCHAR(255) NOT NULL DEFAULT '',
		store_city VARCHAR(100) NOT NULL DEFAULT '',
		store_country VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS store_staff (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS refresh_sessions (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		user_id UUID,
		company_id UUID,
		action VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		details JSONB,
		ip_address VARCHAR(45) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		request_id VARCHAR(255) NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_stores_company_id ON stores(company_id);
	CREATE INDEX IF NOT EXISTS idx_store_staff_store_id ON store_staff(store_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_company_id ON audit_logs(company_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		owner_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		store_name TEXT NOT NULL,
		store_location TEXT NOT NULL DEFAULT '',
		store_phone TEXT NOT NULL DEFAULT '',
		store_email TEXT NOT NULL DEFAULT '',
		store_city TEXT NOT NULL DEFAULT '',
		store_country TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS store_staff (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS refresh_sessions (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		company_id TEXT,
		action TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		details BLOB,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stores_company_id ON stores(company_id);
	CREATE INDEX IF NOT EXISTS idx_store_staff_store_id ON store_staff(store_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_company_id ON audit_logs(company_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
`
