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
	"github.com/brightfunnel/disposition/internal/store/sqlcommon"
)

// tx wraps a single sqlx.Tx against MySQL, mirroring
// internal/store/postgres/tx.go with ? placeholders and
// INSERT ... ON DUPLICATE KEY UPDATE in place of ON CONFLICT.
type tx struct {
	tx *sqlx.Tx
}

func (t *tx) GetContact(ctx context.Context, email, clientID string) (*domain.Contact, error) {
	var row sqlcommon.ContactRow
	err := t.tx.GetContext(ctx, &row, contactByEmailQuery+" FOR UPDATE", email, clientID)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get contact", err, dispoerrors.ErrContactNotFound)
	}
	return row.ToDomain(), nil
}

func (t *tx) GetContactByID(ctx context.Context, id string) (*domain.Contact, error) {
	var row sqlcommon.ContactRow
	err := t.tx.GetContext(ctx, &row, contactByIDQuery+" FOR UPDATE", id)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get contact by id", err, dispoerrors.ErrContactNotFound)
	}
	return row.ToDomain(), nil
}

func (t *tx) GetCompany(ctx context.Context, domainName string) (*domain.Company, error) {
	var row sqlcommon.CompanyRow
	err := t.tx.GetContext(ctx, &row, companyByDomainQuery+" FOR UPDATE", domainName)
	if err != nil {
		return nil, dispoerrors.WrapStoreError("get company", err, dispoerrors.ErrCompanyNotFound)
	}
	return row.ToDomain(), nil
}

func (t *tx) GetOrCreateCompany(ctx context.Context, domainName string) (*domain.Company, error) {
	c, err := t.GetCompany(ctx, domainName)
	if err == nil {
		return c, nil
	}
	if !dispoerrors.IsNotFound(err) {
		return nil, err
	}
	now := time.Now()
	_, insertErr := t.tx.ExecContext(ctx, `
		INSERT INTO companies (domain, name, status, company_suppressed, contacts_total,
			contacts_in_sequence, contacts_touched, is_customer, created_at, updated_at)
		VALUES (?, ?, 'FRESH', false, 0, 0, 0, false, ?, ?)
		ON DUPLICATE KEY UPDATE domain = domain
	`, domainName, domainName, now, now)
	if insertErr != nil {
		return nil, fmt.Errorf("create company: %w: %w", dispoerrors.ErrStoreError, insertErr)
	}
	return t.GetCompany(ctx, domainName)
}

func (t *tx) UpdateContact(ctx context.Context, contactID string, u store.ContactUpdate) error {
	sets := []string{}
	args := []any{}
	if u.DispositionStatus != nil {
		sets = append(sets, "disposition_status = ?")
		args = append(args, string(*u.DispositionStatus))
	}
	if u.DispositionUpdatedAt != nil {
		sets = append(sets, "disposition_updated_at = ?")
		args = append(args, *u.DispositionUpdatedAt)
	}
	if u.Channel != "" {
		if u.ChannelLastContactedAt != nil {
			sets = append(sets, fmt.Sprintf("%s_last_contacted = ?", u.Channel))
			args = append(args, *u.ChannelLastContactedAt)
		}
		if u.ChannelCooldownUntil != nil {
			sets = append(sets, fmt.Sprintf("%s_cooldown_until = ?", u.Channel))
			args = append(args, *u.ChannelCooldownUntil)
		}
		if u.ChannelSuppressed != nil {
			sets = append(sets, fmt.Sprintf("%s_suppressed = ?", u.Channel))
			args = append(args, *u.ChannelSuppressed)
		}
	}
	if u.AllChannelsSuppressed != nil {
		sets = append(sets, "email_suppressed = ?", "linkedin_suppressed = ?", "phone_suppressed = ?")
		args = append(args, *u.AllChannelsSuppressed, *u.AllChannelsSuppressed, *u.AllChannelsSuppressed)
	}
	if u.SequenceCountIncrement {
		sets = append(sets, "sequence_count = sequence_count + 1")
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = UTC_TIMESTAMP()")
	query := fmt.Sprintf("UPDATE contacts SET %s WHERE id = ?", joinComma(sets))
	args = append(args, contactID)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update contact: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) UpdateCompany(ctx context.Context, domainName string, u store.CompanyUpdate) error {
	sets := []string{}
	args := []any{}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.Suppressed != nil {
		sets = append(sets, "company_suppressed = ?")
		args = append(args, *u.Suppressed)
	}
	if u.SuppressedReason != nil {
		sets = append(sets, "suppressed_reason = ?")
		args = append(args, *u.SuppressedReason)
	}
	if u.SuppressedAt != nil {
		sets = append(sets, "suppressed_at = ?")
		args = append(args, *u.SuppressedAt)
	}
	if u.ContactsInSequenceDelta != 0 {
		sets = append(sets, "contacts_in_sequence = GREATEST(0, contacts_in_sequence + (?))")
		args = append(args, u.ContactsInSequenceDelta)
	}
	if u.ContactsTouchedDelta != 0 {
		sets = append(sets, "contacts_touched = contacts_touched + (?)")
		args = append(args, u.ContactsTouchedDelta)
	}
	if u.LastContactDate != nil {
		sets = append(sets, "last_contact_date = ?")
		args = append(args, *u.LastContactDate)
	}
	if u.IsCustomer != nil {
		sets = append(sets, "is_customer = ?")
		args = append(args, *u.IsCustomer)
	}
	if u.CustomerSince != nil {
		sets = append(sets, "customer_since = ?")
		args = append(args, *u.CustomerSince)
	}
	if u.ClientOwnerID != nil {
		if *u.ClientOwnerID == "" {
			sets = append(sets, "client_owner_id = NULL", "client_owned_at = NULL", "ownership_expires_at = NULL")
		} else {
			sets = append(sets, "client_owner_id = ?")
			args = append(args, *u.ClientOwnerID)
		}
	}
	if u.ClientOwnedAt != nil {
		sets = append(sets, "client_owned_at = ?")
		args = append(args, *u.ClientOwnedAt)
	}
	if u.OwnershipExpiresAt != nil {
		sets = append(sets, "ownership_expires_at = ?")
		args = append(args, *u.OwnershipExpiresAt)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = UTC_TIMESTAMP()")
	query := fmt.Sprintf("UPDATE companies SET %s WHERE domain = ?", joinComma(sets))
	args = append(args, domainName)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update company: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) CascadeSuppressCompany(ctx context.Context, domainName string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE contacts SET email_suppressed = true, updated_at = UTC_TIMESTAMP() WHERE company_domain = ?`, domainName)
	if err != nil {
		return fmt.Errorf("cascade suppress: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) InsertDispositionHistory(ctx context.Context, h *domain.DispositionHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO disposition_history (id, contact_id, client_id, previous_status, new_status,
			transition_reason, triggered_by, campaign_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)
	`, h.ID, h.ContactID, h.ClientID, string(h.PreviousStatus), string(h.NewStatus),
		h.TransitionReason, string(h.TriggeredBy), h.CampaignID, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert disposition history: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) InsertOwnershipChange(ctx context.Context, o *domain.OwnershipChange) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.ChangedAt.IsZero() {
		o.ChangedAt = time.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ownership_changes (id, company_domain, previous_owner_id, new_owner_id, change_reason, changed_at)
		VALUES (?,?,?,?,?,?)
	`, o.ID, o.CompanyDomain, o.PreviousOwnerID, o.NewOwnerID, string(o.ChangeReason), o.ChangedAt)
	if err != nil {
		return fmt.Errorf("insert ownership change: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) InsertCampaignAssignment(ctx context.Context, a *domain.CampaignAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO campaign_assignments (id, contact_id, campaign_id, client_id, channel, assigned_at)
		VALUES (?,?,?,?,?,?)
	`, a.ID, a.ContactID, a.CampaignID, a.ClientID, string(a.Channel), a.AssignedAt)
	if err != nil {
		return fmt.Errorf("insert campaign assignment: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) InsertContact(ctx context.Context, c *domain.Contact) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	email := c.Channel(domain.ChannelEmail)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO contacts (
			id, email, client_id, company_domain, first_name, last_name, title, company_name,
			disposition_status, disposition_updated_at,
			email_last_contacted, email_cooldown_until, email_suppressed,
			linkedin_last_contacted, linkedin_cooldown_until, linkedin_suppressed,
			phone_last_contacted, phone_cooldown_until, phone_suppressed,
			data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE id = id
	`, c.ID, c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName, c.Title, c.CompanyName,
		string(c.DispositionStatus), now,
		email.LastContactedAt, email.CooldownUntil, email.Suppressed,
		nil, nil, false, nil, nil, false,
		c.DataEnrichedAt, c.SequenceCount, c.SourceSystem, c.SourceID, now, now)
	if err != nil {
		return false, fmt.Errorf("insert contact: %w: %w", dispoerrors.ErrStoreError, err)
	}
	// MySQL's ON DUPLICATE KEY UPDATE reports 1 row for a true insert
	// and 0 for a no-op update (id = id touches nothing), so
	// RowsAffected distinguishes created from duplicate-skipped.
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert contact rows affected: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return n > 0, nil
}

func (t *tx) SweepExpiredCooldowns(ctx context.Context, now time.Time) ([]*domain.Contact, error) {
	var rows []sqlcommon.ContactRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, email, client_id, company_domain, first_name, last_name, title, company_name,
		       disposition_status, disposition_updated_at,
		       email_last_contacted, email_cooldown_until, email_suppressed,
		       linkedin_last_contacted, linkedin_cooldown_until, linkedin_suppressed,
		       phone_last_contacted, phone_cooldown_until, phone_suppressed,
		       data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at
		FROM contacts
		WHERE disposition_status IN ('COMPLETED_NO_RESPONSE','REPLIED_NEUTRAL','REPLIED_NEGATIVE','LOST_CLOSED')
		  AND email_cooldown_until IS NOT NULL AND email_cooldown_until <= ?
	`, now)
	if err != nil {
		return nil, fmt.Errorf("sweep expired cooldowns: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return toDomainContacts(rows), nil
}

func (t *tx) SweepStaleDataCandidates(ctx context.Context, cutoff time.Time) ([]*domain.Contact, error) {
	var rows []sqlcommon.ContactRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, email, client_id, company_domain, first_name, last_name, title, company_name,
		       disposition_status, disposition_updated_at,
		       email_last_contacted, email_cooldown_until, email_suppressed,
		       linkedin_last_contacted, linkedin_cooldown_until, linkedin_suppressed,
		       phone_last_contacted, phone_cooldown_until, phone_suppressed,
		       data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at
		FROM contacts
		WHERE disposition_status NOT IN ('REPLIED_HARD_NO','BOUNCED','UNSUBSCRIBED','WON_CUSTOMER','STALE_DATA')
		  AND data_enriched_at IS NOT NULL AND data_enriched_at < ?
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sweep stale data: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return toDomainContacts(rows), nil
}

func (t *tx) SweepExpiredOwnershipCandidates(ctx context.Context, now time.Time) ([]*domain.Company, error) {
	var rows []sqlcommon.CompanyRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT domain, name, status, company_suppressed, suppressed_reason, suppressed_at,
		       contacts_total, contacts_in_sequence, contacts_touched,
		       last_contact_date, company_cooldown_until, is_customer, customer_since,
		       client_owner_id, client_owned_at, ownership_expires_at, created_at, updated_at
		FROM companies
		WHERE client_owner_id IS NOT NULL
		  AND ownership_expires_at <= ?
		  AND contacts_in_sequence = 0
		FOR UPDATE
	`, now)
	if err != nil {
		return nil, fmt.Errorf("sweep expired ownership: %w: %w", dispoerrors.ErrStoreError, err)
	}
	out := make([]*domain.Company, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (t *tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func toDomainContacts(rows []sqlcommon.ContactRow) []*domain.Contact {
	out := make([]*domain.Contact, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
