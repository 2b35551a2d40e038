package statemachine

import "github.com/brightfunnel/disposition/internal/domain"

// transitions is the legal transition map. A same-state request never
// consults this map (Machine.Transition treats it as a no-op).
var transitions = map[domain.DispositionStatus]map[domain.DispositionStatus]bool{
	domain.StatusFresh: set(
		domain.StatusInSequence,
		domain.StatusStaleData,
		domain.StatusJobChangeDetected,
	),
	domain.StatusInSequence: set(
		domain.StatusCompletedNoResponse,
		domain.StatusRepliedPositive,
		domain.StatusRepliedNeutral,
		domain.StatusRepliedNegative,
		domain.StatusRepliedHardNo,
		domain.StatusBounced,
		domain.StatusUnsubscribed,
	),
	domain.StatusCompletedNoResponse: set(
		domain.StatusRetouchEligible,
		domain.StatusStaleData,
		domain.StatusJobChangeDetected,
	),
	domain.StatusRepliedPositive: set(
		domain.StatusWonCustomer,
		domain.StatusLostClosed,
	),
	domain.StatusRepliedNeutral: set(
		domain.StatusRetouchEligible,
		domain.StatusStaleData,
	),
	domain.StatusRepliedNegative: set(
		domain.StatusRetouchEligible,
		domain.StatusStaleData,
	),
	domain.StatusRepliedHardNo: set(),
	domain.StatusBounced:       set(),
	domain.StatusUnsubscribed:  set(),
	domain.StatusRetouchEligible: set(
		domain.StatusInSequence,
		domain.StatusStaleData,
		domain.StatusJobChangeDetected,
	),
	domain.StatusStaleData: set(
		domain.StatusFresh,
		domain.StatusRetouchEligible,
	),
	domain.StatusJobChangeDetected: set(
		domain.StatusFresh,
	),
	domain.StatusWonCustomer: set(),
	domain.StatusLostClosed: set(
		domain.StatusRetouchEligible,
	),
}

func set(statuses ...domain.DispositionStatus) map[domain.DispositionStatus]bool {
	m := make(map[domain.DispositionStatus]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// Allowed returns the set of statuses current may legally move to.
func Allowed(current domain.DispositionStatus) []domain.DispositionStatus {
	out := make([]domain.DispositionStatus, 0, len(transitions[current]))
	for s := range transitions[current] {
		out = append(out, s)
	}
	return out
}

// IsLegal reports whether current -> target is in the transition map.
// A same-state request is always legal (checked separately by callers
// that want to short-circuit before side effects run).
func IsLegal(current, target domain.DispositionStatus) bool {
	if current == target {
		return true
	}
	return transitions[current][target]
}
