// Package sqlcommon holds the row-shape structs and scan-to-domain
// conversions shared by the postgres and mysql drivers, so the two
// only need to diverge on SQL text and placeholder syntax rather than
// on Go struct mapping.
package sqlcommon

import (
	"database/sql"
	"time"

	"github.com/brightfunnel/disposition/internal/domain"
)

// ContactRow is the sqlx scan target for one contacts row. Struct tags
// match both drivers' column names (kept identical by design: only
// type affinities differ, not names).
type ContactRow struct {
	ID            string `db:"id"`
	Email         string `db:"email"`
	ClientID      string `db:"client_id"`
	CompanyDomain string `db:"company_domain"`
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	Title         string `db:"title"`
	CompanyName   string `db:"company_name"`

	DispositionStatus    string    `db:"disposition_status"`
	DispositionUpdatedAt time.Time `db:"disposition_updated_at"`

	EmailLastContacted   sql.NullTime `db:"email_last_contacted"`
	EmailCooldownUntil   sql.NullTime `db:"email_cooldown_until"`
	EmailSuppressed      bool         `db:"email_suppressed"`
	LinkedinLastContacted sql.NullTime `db:"linkedin_last_contacted"`
	LinkedinCooldownUntil sql.NullTime `db:"linkedin_cooldown_until"`
	LinkedinSuppressed    bool         `db:"linkedin_suppressed"`
	PhoneLastContacted    sql.NullTime `db:"phone_last_contacted"`
	PhoneCooldownUntil    sql.NullTime `db:"phone_cooldown_until"`
	PhoneSuppressed       bool         `db:"phone_suppressed"`

	DataEnrichedAt sql.NullTime `db:"data_enriched_at"`
	SequenceCount  int          `db:"sequence_count"`

	SourceSystem string `db:"source_system"`
	SourceID     string `db:"source_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToDomain converts a scanned row into the domain.Contact the rest of
// the codebase works with.
func (r *ContactRow) ToDomain() *domain.Contact {
	c := &domain.Contact{
		ID:                   r.ID,
		Email:                r.Email,
		ClientID:             r.ClientID,
		CompanyDomain:        r.CompanyDomain,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Title:                r.Title,
		CompanyName:          r.CompanyName,
		DispositionStatus:    domain.DispositionStatus(r.DispositionStatus),
		DispositionUpdatedAt: r.DispositionUpdatedAt,
		SequenceCount:        r.SequenceCount,
		SourceSystem:         r.SourceSystem,
		SourceID:             r.SourceID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Channels:             make(map[domain.Channel]*domain.ChannelFields),
	}
	if r.DataEnrichedAt.Valid {
		t := r.DataEnrichedAt.Time
		c.DataEnrichedAt = &t
	}
	c.Channels[domain.ChannelEmail] = &domain.ChannelFields{
		LastContactedAt: nullTimePtr(r.EmailLastContacted),
		CooldownUntil:   nullTimePtr(r.EmailCooldownUntil),
		Suppressed:      r.EmailSuppressed,
	}
	c.Channels[domain.ChannelLinkedIn] = &domain.ChannelFields{
		LastContactedAt: nullTimePtr(r.LinkedinLastContacted),
		CooldownUntil:   nullTimePtr(r.LinkedinCooldownUntil),
		Suppressed:      r.LinkedinSuppressed,
	}
	c.Channels[domain.ChannelPhone] = &domain.ChannelFields{
		LastContactedAt: nullTimePtr(r.PhoneLastContacted),
		CooldownUntil:   nullTimePtr(r.PhoneCooldownUntil),
		Suppressed:      r.PhoneSuppressed,
	}
	return c
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// CompanyRow is the sqlx scan target for one companies row.
type CompanyRow struct {
	Domain string `db:"domain"`
	Name   string `db:"name"`

	Status           string         `db:"status"`
	Suppressed       bool           `db:"company_suppressed"`
	SuppressedReason sql.NullString `db:"suppressed_reason"`
	SuppressedAt     sql.NullTime   `db:"suppressed_at"`

	ContactsTotal      int `db:"contacts_total"`
	ContactsInSequence int `db:"contacts_in_sequence"`
	ContactsTouched    int `db:"contacts_touched"`

	LastContactDate      sql.NullTime `db:"last_contact_date"`
	CompanyCooldownUntil sql.NullTime `db:"company_cooldown_until"`

	IsCustomer    bool         `db:"is_customer"`
	CustomerSince sql.NullTime `db:"customer_since"`

	ClientOwnerID      sql.NullString `db:"client_owner_id"`
	ClientOwnedAt      sql.NullTime   `db:"client_owned_at"`
	OwnershipExpiresAt sql.NullTime   `db:"ownership_expires_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToDomain converts a scanned row into the domain.Company the rest of
// the codebase works with.
func (r *CompanyRow) ToDomain() *domain.Company {
	c := &domain.Company{
		Domain:             r.Domain,
		Name:               r.Name,
		Status:             domain.CompanyStatus(r.Status),
		Suppressed:         r.Suppressed,
		ContactsTotal:      r.ContactsTotal,
		ContactsInSequence: r.ContactsInSequence,
		ContactsTouched:    r.ContactsTouched,
		IsCustomer:         r.IsCustomer,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.SuppressedReason.Valid {
		c.SuppressedReason = r.SuppressedReason.String
	}
	c.SuppressedAt = nullTimePtr(r.SuppressedAt)
	c.LastContactDate = nullTimePtr(r.LastContactDate)
	c.CompanyCooldownUntil = nullTimePtr(r.CompanyCooldownUntil)
	c.CustomerSince = nullTimePtr(r.CustomerSince)
	if r.ClientOwnerID.Valid {
		c.ClientOwnerID = r.ClientOwnerID.String
	}
	c.ClientOwnedAt = nullTimePtr(r.ClientOwnedAt)
	c.OwnershipExpiresAt = nullTimePtr(r.OwnershipExpiresAt)
	return c
}
