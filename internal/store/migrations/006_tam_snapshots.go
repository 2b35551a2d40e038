package migrations

var migration006TAMSnapshots = Migration{
	Version: 6,
	Name:    "tam_snapshots",
	Postgres: `
CREATE TABLE tam_snapshots (
	id UUID PRIMARY KEY,
	snapshot_date TIMESTAMPTZ NOT NULL,
	client_id TEXT NOT NULL,
	total_universe INTEGER NOT NULL DEFAULT 0,
	never_touched INTEGER NOT NULL DEFAULT 0,
	in_cooldown INTEGER NOT NULL DEFAULT 0,
	available_now INTEGER NOT NULL DEFAULT 0,
	permanent_suppress INTEGER NOT NULL DEFAULT 0,
	in_sequence INTEGER NOT NULL DEFAULT 0,
	won_customer INTEGER NOT NULL DEFAULT 0,
	burn_rate_weekly DOUBLE PRECISION NOT NULL DEFAULT 0,
	exhaustion_eta_weeks DOUBLE PRECISION,
	health_status TEXT NOT NULL DEFAULT 'HEALTHY',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (client_id, snapshot_date)
);
CREATE INDEX idx_tam_snapshots_client_date ON tam_snapshots(client_id, snapshot_date DESC);
`,
	MySQL: `
CREATE TABLE tam_snapshots (
	id CHAR(36) PRIMARY KEY,
	snapshot_date DATE NOT NULL,
	client_id VARCHAR(255) NOT NULL,
	total_universe INT NOT NULL DEFAULT 0,
	never_touched INT NOT NULL DEFAULT 0,
	in_cooldown INT NOT NULL DEFAULT 0,
	available_now INT NOT NULL DEFAULT 0,
	permanent_suppress INT NOT NULL DEFAULT 0,
	in_sequence INT NOT NULL DEFAULT 0,
	won_customer INT NOT NULL DEFAULT 0,
	burn_rate_weekly DOUBLE NOT NULL DEFAULT 0,
	exhaustion_eta_weeks DOUBLE,
	health_status VARCHAR(32) NOT NULL DEFAULT 'HEALTHY',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_tam_snapshots_client_date (client_id, snapshot_date),
	KEY idx_tam_snapshots_client_date (client_id, snapshot_date)
) ENGINE=InnoDB;
`,
}
