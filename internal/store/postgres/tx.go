package postgres

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

// tx wraps a single sqlx.Tx; every method mirrors Store's read
// signatures but executes against the live transaction so the single
// row-lock on the contacts/companies rows serializes concurrent
// assignments per spec §5.
type tx struct {
	tx *sqlx.Tx
}

func (t *tx) GetContact(ctx context.Context, email, clientID string) (*domain.Contact, error) {
	var row sqlcommon.ContactRow
	// SELECT ... FOR UPDATE so a concurrent assignment on the same
	// contact blocks rather than racing past the transition check.
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
		VALUES ($1, $1, 'FRESH', false, 0, 0, 0, false, $2, $2)
		ON CONFLICT (domain) DO NOTHING
	`, domainName, now)
	if insertErr != nil {
		return nil, fmt.Errorf("create company: %w: %w", dispoerrors.ErrStoreError, insertErr)
	}
	return t.GetCompany(ctx, domainName)
}

func (t *tx) UpdateContact(ctx context.Context, contactID string, u store.ContactUpdate) error {
	sets := []string{}
	args := []any{}
	n := 1
	bind := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if u.DispositionStatus != nil {
		sets = append(sets, "disposition_status = "+bind(string(*u.DispositionStatus)))
	}
	if u.DispositionUpdatedAt != nil {
		sets = append(sets, "disposition_updated_at = "+bind(*u.DispositionUpdatedAt))
	}
	if u.Channel != "" {
		if u.ChannelLastContactedAt != nil {
			sets = append(sets, fmt.Sprintf("%s_last_contacted = %s", u.Channel, bind(*u.ChannelLastContactedAt)))
		}
		if u.ChannelCooldownUntil != nil {
			sets = append(sets, fmt.Sprintf("%s_cooldown_until = %s", u.Channel, bind(*u.ChannelCooldownUntil)))
		}
		if u.ChannelSuppressed != nil {
			sets = append(sets, fmt.Sprintf("%s_suppressed = %s", u.Channel, bind(*u.ChannelSuppressed)))
		}
	}
	if u.AllChannelsSuppressed != nil {
		placeholder := bind(*u.AllChannelsSuppressed)
		sets = append(sets,
			"email_suppressed = "+placeholder,
			"linkedin_suppressed = "+placeholder,
			"phone_suppressed = "+placeholder,
		)
	}
	if u.SequenceCountIncrement {
		sets = append(sets, "sequence_count = sequence_count + 1")
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE contacts SET %s WHERE id = $1", joinComma(sets))
	args = append([]any{contactID}, args...)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update contact: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) UpdateCompany(ctx context.Context, domainName string, u store.CompanyUpdate) error {
	sets := []string{}
	args := []any{}
	n := 1
	bind := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if u.Status != nil {
		sets = append(sets, "status = "+bind(string(*u.Status)))
	}
	if u.Suppressed != nil {
		sets = append(sets, "company_suppressed = "+bind(*u.Suppressed))
	}
	if u.SuppressedReason != nil {
		sets = append(sets, "suppressed_reason = "+bind(*u.SuppressedReason))
	}
	if u.SuppressedAt != nil {
		sets = append(sets, "suppressed_at = "+bind(*u.SuppressedAt))
	}
	if u.ContactsInSequenceDelta != 0 {
		sets = append(sets, fmt.Sprintf("contacts_in_sequence = GREATEST(0, contacts_in_sequence + (%s))", bind(u.ContactsInSequenceDelta)))
	}
	if u.ContactsTouchedDelta != 0 {
		sets = append(sets, fmt.Sprintf("contacts_touched = contacts_touched + (%s)", bind(u.ContactsTouchedDelta)))
	}
	if u.LastContactDate != nil {
		sets = append(sets, "last_contact_date = "+bind(*u.LastContactDate))
	}
	if u.IsCustomer != nil {
		sets = append(sets, "is_customer = "+bind(*u.IsCustomer))
	}
	if u.CustomerSince != nil {
		sets = append(sets, "customer_since = "+bind(*u.CustomerSince))
	}
	if u.ClientOwnerID != nil {
		if *u.ClientOwnerID == "" {
			sets = append(sets, "client_owner_id = NULL", "client_owned_at = NULL", "ownership_expires_at = NULL")
		} else {
			sets = append(sets, "client_owner_id = "+bind(*u.ClientOwnerID))
		}
	}
	if u.ClientOwnedAt != nil {
		sets = append(sets, "client_owned_at = "+bind(*u.ClientOwnedAt))
	}
	if u.OwnershipExpiresAt != nil {
		sets = append(sets, "ownership_expires_at = "+bind(*u.OwnershipExpiresAt))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE companies SET %s WHERE domain = $1", joinComma(sets))
	args = append([]any{domainName}, args...)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update company: %w: %w", dispoerrors.ErrStoreError, err)
	}
	return nil
}

func (t *tx) CascadeSuppressCompany(ctx context.Context, domainName string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE contacts SET email_suppressed = true, updated_at = NOW() WHERE company_domain = $1`, domainName)
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
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
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
		VALUES ($1,$2,$3,$4,$5,$6)
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
		VALUES ($1,$2,$3,$4,$5,$6)
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
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		ON CONFLICT (email, client_id) DO NOTHING
	`, c.ID, c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName, c.Title, c.CompanyName,
		string(c.DispositionStatus), now,
		email.LastContactedAt, email.CooldownUntil, email.Suppressed,
		nil, nil, false, nil, nil, false,
		c.DataEnrichedAt, c.SequenceCount, c.SourceSystem, c.SourceID, now, now)
	if err != nil {
		return false, fmt.Errorf("insert contact: %w: %w", dispoerrors.ErrStoreError, err)
	}
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
		  AND email_cooldown_until IS NOT NULL AND email_cooldown_until <= $1
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
		  AND data_enriched_at IS NOT NULL AND data_enriched_at < $1
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
		  AND ownership_expires_at <= $1
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
