package migrations

var migration005CampaignAssignments = Migration{
	Version: 5,
	Name:    "campaign_assignments",
	Postgres: `
CREATE TABLE campaign_assignments (
	id UUID PRIMARY KEY,
	contact_id UUID NOT NULL REFERENCES contacts(id),
	campaign_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_campaign_assignments_campaign ON campaign_assignments(campaign_id);
CREATE INDEX idx_campaign_assignments_contact ON campaign_assignments(contact_id);
`,
	MySQL: `
CREATE TABLE campaign_assignments (
	id CHAR(36) PRIMARY KEY,
	contact_id CHAR(36) NOT NULL,
	campaign_id VARCHAR(255) NOT NULL,
	client_id VARCHAR(255) NOT NULL,
	channel VARCHAR(32) NOT NULL,
	assigned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_campaign_assignments_campaign (campaign_id),
	KEY idx_campaign_assignments_contact (contact_id),
	CONSTRAINT fk_campaign_assignments_contact FOREIGN KEY (contact_id) REFERENCES contacts(id)
) ENGINE=InnoDB;
`,
}
