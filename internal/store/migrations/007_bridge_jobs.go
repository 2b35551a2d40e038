package migrations

var migration007BridgeJobs = Migration{
	Version: 7,
	Name:    "bridge_jobs",
	Postgres: `
CREATE TABLE bridge_jobs (
	id UUID PRIMARY KEY,
	client_id TEXT NOT NULL,
	suggestion_id TEXT NOT NULL DEFAULT '',
	volume INTEGER NOT NULL DEFAULT 0,
	channel TEXT NOT NULL DEFAULT 'email',
	enable_external BOOLEAN NOT NULL DEFAULT false,
	max_external_credits DOUBLE PRECISION NOT NULL DEFAULT 0,
	search_criteria JSONB,
	status TEXT NOT NULL DEFAULT 'pending',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	result_data JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_bridge_jobs_status_created ON bridge_jobs(status, created_at);
`,
	MySQL: `
CREATE TABLE bridge_jobs (
	id CHAR(36) PRIMARY KEY,
	client_id VARCHAR(255) NOT NULL,
	suggestion_id VARCHAR(255) NOT NULL DEFAULT '',
	volume INT NOT NULL DEFAULT 0,
	channel VARCHAR(32) NOT NULL DEFAULT 'email',
	enable_external BOOLEAN NOT NULL DEFAULT false,
	max_external_credits DOUBLE NOT NULL DEFAULT 0,
	search_criteria JSON,
	status VARCHAR(32) NOT NULL DEFAULT 'pending',
	started_at DATETIME,
	completed_at DATETIME,
	result_data JSON,
	error_message VARCHAR(1024) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_bridge_jobs_status_created (status, created_at)
) ENGINE=InnoDB;
`,
}
