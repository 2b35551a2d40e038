package migrations

var migration003DispositionHistory = Migration{
	Version: 3,
	Name:    "disposition_history",
	Postgres: `
CREATE TABLE disposition_history (
	id UUID PRIMARY KEY,
	contact_id UUID NOT NULL REFERENCES contacts(id),
	client_id TEXT NOT NULL,
	previous_status TEXT NOT NULL,
	new_status TEXT NOT NULL,
	transition_reason TEXT NOT NULL DEFAULT '',
	triggered_by TEXT NOT NULL,
	campaign_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_disposition_history_contact ON disposition_history(contact_id);
CREATE INDEX idx_disposition_history_status_created ON disposition_history(new_status, created_at);
`,
	MySQL: `
CREATE TABLE disposition_history (
	id CHAR(36) PRIMARY KEY,
	contact_id CHAR(36) NOT NULL,
	client_id VARCHAR(255) NOT NULL,
	previous_status VARCHAR(32) NOT NULL,
	new_status VARCHAR(32) NOT NULL,
	transition_reason VARCHAR(255) NOT NULL DEFAULT '',
	triggered_by VARCHAR(32) NOT NULL,
	campaign_id VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_disposition_history_contact (contact_id),
	KEY idx_disposition_history_status_created (new_status, created_at),
	CONSTRAINT fk_disposition_history_contact FOREIGN KEY (contact_id) REFERENCES contacts(id)
) ENGINE=InnoDB;
`,
}
