package migrations

var migration001Companies = Migration{
	Version: 1,
	Name:    "companies",
	Postgres: `
CREATE TABLE companies (
	domain TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'FRESH',
	company_suppressed BOOLEAN NOT NULL DEFAULT false,
	suppressed_reason TEXT,
	suppressed_at TIMESTAMPTZ,
	contacts_total INTEGER NOT NULL DEFAULT 0,
	contacts_in_sequence INTEGER NOT NULL DEFAULT 0,
	contacts_touched INTEGER NOT NULL DEFAULT 0,
	last_contact_date TIMESTAMPTZ,
	company_cooldown_until TIMESTAMPTZ,
	is_customer BOOLEAN NOT NULL DEFAULT false,
	customer_since TIMESTAMPTZ,
	client_owner_id TEXT,
	client_owned_at TIMESTAMPTZ,
	ownership_expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_companies_owner ON companies(client_owner_id) WHERE client_owner_id IS NOT NULL;
CREATE INDEX idx_companies_ownership_expiry ON companies(ownership_expires_at) WHERE ownership_expires_at IS NOT NULL;
`,
	MySQL: `
CREATE TABLE companies (
	domain VARCHAR(255) PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(32) NOT NULL DEFAULT 'FRESH',
	company_suppressed BOOLEAN NOT NULL DEFAULT false,
	suppressed_reason VARCHAR(255),
	suppressed_at DATETIME,
	contacts_total INT NOT NULL DEFAULT 0,
	contacts_in_sequence INT NOT NULL DEFAULT 0,
	contacts_touched INT NOT NULL DEFAULT 0,
	last_contact_date DATETIME,
	company_cooldown_until DATETIME,
	is_customer BOOLEAN NOT NULL DEFAULT false,
	customer_since DATETIME,
	client_owner_id VARCHAR(255),
	client_owned_at DATETIME,
	ownership_expires_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_companies_owner (client_owner_id),
	INDEX idx_companies_ownership_expiry (ownership_expires_at)
) ENGINE=InnoDB;
`,
}
