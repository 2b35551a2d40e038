package migrations

var migration002Contacts = Migration{
	Version: 2,
	Name:    "contacts",
	Postgres: `
CREATE TABLE contacts (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL,
	client_id TEXT NOT NULL,
	company_domain TEXT NOT NULL REFERENCES companies(domain),
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',

	disposition_status TEXT NOT NULL DEFAULT 'FRESH',
	disposition_updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	email_last_contacted TIMESTAMPTZ,
	email_cooldown_until TIMESTAMPTZ,
	email_suppressed BOOLEAN NOT NULL DEFAULT false,
	linkedin_last_contacted TIMESTAMPTZ,
	linkedin_cooldown_until TIMESTAMPTZ,
	linkedin_suppressed BOOLEAN NOT NULL DEFAULT false,
	phone_last_contacted TIMESTAMPTZ,
	phone_cooldown_until TIMESTAMPTZ,
	phone_suppressed BOOLEAN NOT NULL DEFAULT false,

	data_enriched_at TIMESTAMPTZ,
	sequence_count INTEGER NOT NULL DEFAULT 0,
	source_system TEXT NOT NULL DEFAULT '',
	source_id TEXT NOT NULL DEFAULT '',

	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	UNIQUE (email, client_id)
);
CREATE INDEX idx_contacts_company ON contacts(company_domain);
CREATE INDEX idx_contacts_client_status ON contacts(client_id, disposition_status);
CREATE INDEX idx_contacts_email_cooldown ON contacts(email_cooldown_until) WHERE email_cooldown_until IS NOT NULL;
CREATE INDEX idx_contacts_data_enriched ON contacts(data_enriched_at);
`,
	MySQL: `
CREATE TABLE contacts (
	id CHAR(36) PRIMARY KEY,
	email VARCHAR(320) NOT NULL,
	client_id VARCHAR(255) NOT NULL,
	company_domain VARCHAR(255) NOT NULL,
	first_name VARCHAR(255) NOT NULL DEFAULT '',
	last_name VARCHAR(255) NOT NULL DEFAULT '',
	title VARCHAR(255) NOT NULL DEFAULT '',
	company_name VARCHAR(255) NOT NULL DEFAULT '',

	disposition_status VARCHAR(32) NOT NULL DEFAULT 'FRESH',
	disposition_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

	email_last_contacted DATETIME,
	email_cooldown_until DATETIME,
	email_suppressed BOOLEAN NOT NULL DEFAULT false,
	linkedin_last_contacted DATETIME,
	linkedin_cooldown_until DATETIME,
	linkedin_suppressed BOOLEAN NOT NULL DEFAULT false,
	phone_last_contacted DATETIME,
	phone_cooldown_until DATETIME,
	phone_suppressed BOOLEAN NOT NULL DEFAULT false,

	data_enriched_at DATETIME,
	sequence_count INT NOT NULL DEFAULT 0,
	source_system VARCHAR(64) NOT NULL DEFAULT '',
	source_id VARCHAR(255) NOT NULL DEFAULT '',

	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

	UNIQUE KEY uq_contacts_email_client (email, client_id),
	KEY idx_contacts_company (company_domain),
	KEY idx_contacts_client_status (client_id, disposition_status),
	KEY idx_contacts_email_cooldown (email_cooldown_until),
	KEY idx_contacts_data_enriched (data_enriched_at),
	CONSTRAINT fk_contacts_company FOREIGN KEY (company_domain) REFERENCES companies(domain)
) ENGINE=InnoDB;
`,
}
