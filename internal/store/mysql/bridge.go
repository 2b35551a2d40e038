package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/store"
)

// claimNextBridgeJob dequeues the oldest pending row under
// FOR UPDATE SKIP LOCKED (MySQL 8.0+) so N bridge workers can poll
// concurrently without blocking on each other (spec §5, §6).
func claimNextBridgeJob(ctx context.Context, db *sqlx.DB) (*store.BridgeJob, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim bridge job begin: %w: %w", dispoerrors.ErrStoreError, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var j store.BridgeJob
	row := tx.QueryRowxContext(ctx, `
		SELECT id, client_id, suggestion_id, volume, channel, enable_external, max_external_credits,
		       search_criteria, status, started_at, completed_at, result_data, error_message, created_at
		FROM bridge_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	if err := row.Scan(&j.ID, &j.ClientID, &j.SuggestionID, &j.Volume, &j.Channel, &j.EnableExternal,
		&j.MaxExternalCredits, &j.SearchCriteriaJSON, &j.Status, &j.StartedAt, &j.CompletedAt,
		&j.ResultDataJSON, &j.ErrorMessage, &j.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim bridge job scan: %w: %w", dispoerrors.ErrStoreError, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE bridge_jobs SET status='processing', started_at=UTC_TIMESTAMP() WHERE id=?`, j.ID); err != nil {
		return nil, fmt.Errorf("claim bridge job update: %w: %w", dispoerrors.ErrStoreError, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim bridge job commit: %w: %w", dispoerrors.ErrStoreError, err)
	}
	j.Status = "processing"
	return &j, nil
}
