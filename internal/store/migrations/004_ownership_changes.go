package migrations

var migration004OwnershipChanges = Migration{
	Version: 4,
	Name:    "ownership_changes",
	Postgres: `
CREATE TABLE ownership_changes (
	id UUID PRIMARY KEY,
	company_domain TEXT NOT NULL REFERENCES companies(domain),
	previous_owner_id TEXT NOT NULL DEFAULT '',
	new_owner_id TEXT NOT NULL DEFAULT '',
	change_reason TEXT NOT NULL,
	changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_ownership_changes_company ON ownership_changes(company_domain);
`,
	MySQL: `
CREATE TABLE ownership_changes (
	id CHAR(36) PRIMARY KEY,
	company_domain VARCHAR(255) NOT NULL,
	previous_owner_id VARCHAR(255) NOT NULL DEFAULT '',
	new_owner_id VARCHAR(255) NOT NULL DEFAULT '',
	change_reason VARCHAR(32) NOT NULL,
	changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_ownership_changes_company (company_domain),
	CONSTRAINT fk_ownership_changes_company FOREIGN KEY (company_domain) REFERENCES companies(domain)
) ENGINE=InnoDB;
`,
}
