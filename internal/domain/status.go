// Package domain holds the entity types shared by every component of the
// disposition control plane: Contact, Company, and the append-only log
// rows that record how they got that way.
package domain

// DispositionStatus is the lifecycle state of a Contact.
type DispositionStatus string

const (
	StatusFresh                DispositionStatus = "FRESH"
	StatusInSequence           DispositionStatus = "IN_SEQUENCE"
	StatusCompletedNoResponse  DispositionStatus = "COMPLETED_NO_RESPONSE"
	StatusRepliedPositive      DispositionStatus = "REPLIED_POSITIVE"
	StatusRepliedNeutral       DispositionStatus = "REPLIED_NEUTRAL"
	StatusRepliedNegative      DispositionStatus = "REPLIED_NEGATIVE"
	StatusRepliedHardNo        DispositionStatus = "REPLIED_HARD_NO"
	StatusBounced              DispositionStatus = "BOUNCED"
	StatusUnsubscribed         DispositionStatus = "UNSUBSCRIBED"
	StatusRetouchEligible      DispositionStatus = "RETOUCH_ELIGIBLE"
	StatusStaleData            DispositionStatus = "STALE_DATA"
	StatusJobChangeDetected    DispositionStatus = "JOB_CHANGE_DETECTED"
	StatusWonCustomer          DispositionStatus = "WON_CUSTOMER"
	StatusLostClosed           DispositionStatus = "LOST_CLOSED"
)

// allStatuses enumerates every valid DispositionStatus.
var allStatuses = map[DispositionStatus]bool{
	StatusFresh:               true,
	StatusInSequence:          true,
	StatusCompletedNoResponse: true,
	StatusRepliedPositive:     true,
	StatusRepliedNeutral:      true,
	StatusRepliedNegative:     true,
	StatusRepliedHardNo:       true,
	StatusBounced:             true,
	StatusUnsubscribed:        true,
	StatusRetouchEligible:     true,
	StatusStaleData:           true,
	StatusJobChangeDetected:   true,
	StatusWonCustomer:         true,
	StatusLostClosed:          true,
}

// IsValid reports whether s is one of the fourteen known statuses.
func (s DispositionStatus) IsValid() bool {
	return allStatuses[s]
}

// TerminalStatuses is the set of statuses with no outgoing transitions.
var TerminalStatuses = map[DispositionStatus]bool{
	StatusRepliedHardNo: true,
	StatusBounced:       true,
	StatusUnsubscribed:  true,
	StatusWonCustomer:   true,
}

// IsTerminal reports whether s has no legal outgoing transition.
func (s DispositionStatus) IsTerminal() bool {
	return TerminalStatuses[s]
}

// PermanentExclusionStatuses is the set excluded from stale-data sweeps:
// the terminal statuses plus STALE_DATA itself (already there).
var PermanentExclusionStatuses = map[DispositionStatus]bool{
	StatusRepliedHardNo: true,
	StatusBounced:       true,
	StatusUnsubscribed:  true,
	StatusWonCustomer:   true,
	StatusStaleData:     true,
}

// CompanyStatus is the lifecycle state of a Company.
type CompanyStatus string

const (
	CompanyFresh      CompanyStatus = "FRESH"
	CompanyActive     CompanyStatus = "ACTIVE"
	CompanyCooling    CompanyStatus = "COOLING"
	CompanySuppressed CompanyStatus = "SUPPRESSED"
	CompanyCustomer   CompanyStatus = "CUSTOMER"
)

// Channel identifies the outbound contact medium a cooldown/suppression
// flag or a cadence touch applies to.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
	ChannelPhone    Channel = "phone"
)

// IsValid reports whether c is one of the three known channels.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelLinkedIn, ChannelPhone:
		return true
	}
	return false
}

// TriggeredBy records which subsystem caused a DispositionHistory row.
type TriggeredBy string

const (
	TriggeredBySystem       TriggeredBy = "system"
	TriggeredByUI           TriggeredBy = "ui"
	TriggeredByCampaignFill TriggeredBy = "campaign_fill"
	TriggeredByMaintenance  TriggeredBy = "maintenance"
)

// OwnershipChangeReason records why a Company's ownership fields moved.
type OwnershipChangeReason string

const (
	OwnershipFirstClaim     OwnershipChangeReason = "first_claim"
	OwnershipExpired        OwnershipChangeReason = "expired"
	OwnershipManualRelease  OwnershipChangeReason = "manual_release"
	OwnershipAdminTransfer  OwnershipChangeReason = "admin_transfer"
)
