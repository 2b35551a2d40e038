package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
)

// tamPoolsQuery re-expresses the Postgres FILTER aggregate with
// SUM(CASE WHEN ... THEN 1 ELSE 0 END), MySQL's equivalent.
const tamPoolsQuery = `
	SELECT
		COUNT(*) AS total_universe,
		SUM(CASE WHEN disposition_status = 'FRESH' AND sequence_count = 0 THEN 1 ELSE 0 END) AS never_touched,
		SUM(CASE WHEN disposition_status IN ('COMPLETED_NO_RESPONSE','REPLIED_NEUTRAL','REPLIED_NEGATIVE','LOST_CLOSED')
			AND email_cooldown_until > ? THEN 1 ELSE 0 END) AS in_cooldown,
		SUM(CASE WHEN disposition_status IN ('FRESH','RETOUCH_ELIGIBLE')
			AND NOT email_suppressed AND (email_cooldown_until IS NULL OR email_cooldown_until <= ?) THEN 1 ELSE 0 END) AS available_now,
		SUM(CASE WHEN disposition_status IN ('REPLIED_HARD_NO','BOUNCED','UNSUBSCRIBED') THEN 1 ELSE 0 END) AS permanent_suppress,
		SUM(CASE WHEN disposition_status = 'IN_SEQUENCE' THEN 1 ELSE 0 END) AS in_sequence,
		SUM(CASE WHEN disposition_status = 'WON_CUSTOMER' THEN 1 ELSE 0 END) AS won_customer
	FROM contacts
	WHERE (? = '' OR client_id = ?)
`

func queryTAMPools(ctx context.Context, db *sqlx.DB, clientID string, now time.Time) (store.TAMPools, error) {
	var p store.TAMPools
	row := db.QueryRowxContext(ctx, tamPoolsQuery, now, now, clientID, clientID)
	if err := row.Scan(&p.TotalUniverse, &p.NeverTouched, &p.InCooldown, &p.AvailableNow,
		&p.PermanentSuppress, &p.InSequence, &p.WonCustomer); err != nil {
		return store.TAMPools{}, fmt.Errorf("tam pools: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return p, nil
}

const upsertSnapshotQuery = `
	INSERT INTO tam_snapshots (
		id, snapshot_date, client_id, total_universe, never_touched, in_cooldown,
		available_now, permanent_suppress, in_sequence, won_customer,
		burn_rate_weekly, exhaustion_eta_weeks, health_status, created_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON DUPLICATE KEY UPDATE
		total_universe = VALUES(total_universe),
		never_touched = VALUES(never_touched),
		in_cooldown = VALUES(in_cooldown),
		available_now = VALUES(available_now),
		permanent_suppress = VALUES(permanent_suppress),
		in_sequence = VALUES(in_sequence),
		won_customer = VALUES(won_customer),
		burn_rate_weekly = VALUES(burn_rate_weekly),
		exhaustion_eta_weeks = VALUES(exhaustion_eta_weeks),
		health_status = VALUES(health_status)
`

func upsertTAMSnapshot(ctx context.Context, db *sqlx.DB, snap *domain.TAMSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, upsertSnapshotQuery,
		snap.ID, snap.SnapshotDate, snap.ClientID, snap.TotalUniverse, snap.NeverTouched, snap.InCooldown,
		snap.AvailableNow, snap.PermanentSuppress, snap.InSequence, snap.WonCustomer,
		snap.BurnRateWeekly, snap.ExhaustionETAWeeks, snap.HealthStatus, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert tam snapshot: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func queryTAMTrends(ctx context.Context, db *sqlx.DB, clientID string, limit int) ([]*domain.TAMSnapshot, error) {
	query := `
		SELECT id, snapshot_date, client_id, total_universe, never_touched, in_cooldown,
		       available_now, permanent_suppress, in_sequence, won_customer,
		       burn_rate_weekly, exhaustion_eta_weeks, health_status, created_at
		FROM tam_snapshots WHERE client_id = ? ORDER BY snapshot_date DESC LIMIT ?`
	rows, err := db.QueryxContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("tam trends: %w: %w", dispoerrors.ErrStoreError, err)
	}
	defer rows.Close()

	var out []*domain.TAMSnapshot
	for rows.Next() {
		var s domain.TAMSnapshot
		if err := rows.Scan(&s.ID, &s.SnapshotDate, &s.ClientID, &s.TotalUniverse, &s.NeverTouched, &s.InCooldown,
			&s.AvailableNow, &s.PermanentSuppress, &s.InSequence, &s.WonCustomer,
			&s.BurnRateWeekly, &s.ExhaustionETAWeeks, &s.HealthStatus, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tam snapshot: %w: %w", dispoerrors.ErrStoreError, err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// The query picks the newest limit rows; return them oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
