// Package postgres implements store.Store against PostgreSQL via the
// pgx/v5 stdlib driver and sqlx for struct scanning, following the
// teacher's raw-SQL-plus-prepared-statement idiom
// (internal/storage/sqlite/issues.go) adapted to a connection-pooled
// server database instead of an embedded file.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/eligibility"
	"github.com/brightfunnel/disposition/internal/store"
	"github.com/brightfunnel/disposition/internal/store/sqlcommon"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres using cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 20))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	sqlxTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return &tx{tx: sqlxTx}, nil
}

func (s *Store) GetContact(ctx context.Context, email, clientID string) (*domain.Contact, error) {
	var row sqlcommon.ContactRow
	err := s.db.GetContext(ctx, &row, contactByEmailQuery, strings.ToLower(email), clientID)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get contact", err, dispoerrors.ErrContactNotFound)
	}
	return row.ToDomain(), nil
}

func (s *Store) GetContactByID(ctx context.Context, id string) (*domain.Contact, error) {
	var row sqlcommon.ContactRow
	err := s.db.GetContext(ctx, &row, contactByIDQuery, id)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get contact by id", err, dispoerrors.ErrContactNotFound)
	}
	return row.ToDomain(), nil
}

func (s *Store) GetCompany(ctx context.Context, domainName string) (*domain.Company, error) {
	var row sqlcommon.CompanyRow
	err := s.db.GetContext(ctx, &row, companyByDomainQuery, domainName)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get company", err, dispoerrors.ErrCompanyNotFound)
	}
	return row.ToDomain(), nil
}

func (s *Store) QueryEligible(ctx context.Context, f store.EligibilityFilter) ([]*domain.Contact, error) {
	query, args := eligibility.Build(eligibility.Postgres, f)
	var rows []sqlcommon.ContactRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query eligible: %w: %w", dispoerrors.ErrStoreError, err)
	}
	out := make([]*domain.Contact, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (s *Store) GetTAMPools(ctx context.Context, clientID string, now time.Time) (store.TAMPools, error) {
	return queryTAMPools(ctx, s.db, clientID, now)
}

func (s *Store) GetBurnRate(ctx context.Context, clientID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM disposition_history
		WHERE new_status = 'IN_SEQUENCE' AND created_at > $1
		AND ($2 = '' OR client_id = $2)`
	if err := s.db.GetContext(ctx, &count, query, since, clientID); err != nil {
		return 0, fmt.Errorf("get burn rate: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return count, nil
}

func (s *Store) DistinctClientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT client_id FROM contacts ORDER BY client_id`); err != nil {
		return nil, fmt.Errorf("distinct client ids: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return ids, nil
}

func (s *Store) UpsertTAMSnapshot(ctx context.Context, snap *domain.TAMSnapshot) error {
	return upsertTAMSnapshot(ctx, s.db, snap)
}

func (s *Store) GetTAMTrends(ctx context.Context, clientID string, limit int) ([]*domain.TAMSnapshot, error) {
	return queryTAMTrends(ctx, s.db, clientID, limit)
}

func (s *Store) ClaimNextBridgeJob(ctx context.Context) (*store.BridgeJob, error) {
	return claimNextBridgeJob(ctx, s.db)
}

func (s *Store) CompleteBridgeJob(ctx context.Context, id string, resultJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `UPDATE bridge_jobs SET status='completed', result_data=$1, completed_at=NOW() WHERE id=$2`, resultJSON, id)
	if err != nil {
		return fmt.Errorf("complete bridge job: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (s *Store) FailBridgeJob(ctx context.Context, id string, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE bridge_jobs SET status='failed', error_message=$1 WHERE id=$2`, errMsg, id)
	if err != nil {
		return fmt.Errorf("fail bridge job: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const contactByEmailQuery = `
	SELECT id, email, client_id, company_domain, first_name, last_name, title, company_name,
	       disposition_status, disposition_updated_at,
	       email_last_contacted, email_cooldown_until, email_suppressed,
	       linkedin_last_contacted, linkedin_cooldown_until, linkedin_suppressed,
	       phone_last_contacted, phone_cooldown_until, phone_suppressed,
	       data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at
	FROM contacts WHERE email = $1 AND client_id = $2`

const contactByIDQuery = `
	SELECT id, email, client_id, company_domain, first_name, last_name, title, company_name,
	       disposition_status, disposition_updated_at,
	       email_last_contacted, email_cooldown_until, email_suppressed,
	       linkedin_last_contacted, linkedin_cooldown_until, linkedin_suppressed,
	       phone_last_contacted, phone_cooldown_until, phone_suppressed,
	       data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at
	FROM contacts WHERE id = $1`

const companyByDomainQuery = `
	SELECT domain, name, status, company_suppressed, suppressed_reason, suppressed_at,
	       contacts_total, contacts_in_sequence, contacts_touched,
	       last_contact_date, company_cooldown_until, is_customer, customer_since,
	       client_owner_id, client_owned_at, ownership_expires_at, created_at, updated_at
	FROM companies WHERE domain = $1`
