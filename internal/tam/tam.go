// Package tam computes total-addressable-market health for a client
// (or globally, ClientID == ""): pool segmentation, weekly burn rate,
// exhaustion ETA, a healthy/warning/critical status, and daily
// snapshot capture for trend reporting. Grounded on
// original_source/src/lead_disposition/tam_tracker.py.
package tam

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/store"
)

const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Health is the computed TAM health snapshot for one client (spec §4.8).
type Health struct {
	ClientID           string
	TotalUniverse      int
	NeverTouched       int
	InCooldown         int
	AvailableNow       int
	PermanentSuppress  int
	InSequence         int
	WonCustomer        int
	BurnRateWeekly     float64
	ExhaustionETAWeeks *float64
	HealthStatus       string
}

// Tracker computes and records TAM health.
type Tracker struct {
	store store.Store
	cfg   func() config.HotConfig
}

// New builds a Tracker.
func New(s store.Store, cfg func() config.HotConfig) *Tracker {
	return &Tracker{store: s, cfg: cfg}
}

// GetHealth computes current TAM health for clientID ("" for global).
func (t *Tracker) GetHealth(ctx context.Context, clientID string) (Health, error) {
	ctx, span := obs.Tracer.Start(ctx, "tam.GetHealth", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	now := time.Now()
	pools, err := t.store.GetTAMPools(ctx, clientID, now)
	if err != nil {
		return Health{}, fmt.Errorf("get tam pools: %w", err)
	}

	since := now.AddDate(0, 0, -7)
	burnCount, err := t.store.GetBurnRate(ctx, clientID, since)
	if err != nil {
		return Health{}, fmt.Errorf("get burn rate: %w", err)
	}
	burnRateWeekly := float64(burnCount)

	var eta *float64
	if burnRateWeekly > 0 {
		v := float64(pools.AvailableNow) / burnRateWeekly
		eta = &v
	}

	hot := t.cfg()
	status := HealthHealthy
	if eta != nil {
		switch {
		case *eta < hot.TAMCriticalWeeks:
			status = HealthCritical
		case *eta < hot.TAMWarningWeeks:
			status = HealthWarning
		}
	}

	h := Health{
		ClientID:           clientID,
		TotalUniverse:      pools.TotalUniverse,
		NeverTouched:       pools.NeverTouched,
		InCooldown:         pools.InCooldown,
		AvailableNow:       pools.AvailableNow,
		PermanentSuppress:  pools.PermanentSuppress,
		InSequence:         pools.InSequence,
		WonCustomer:        pools.WonCustomer,
		BurnRateWeekly:     burnRateWeekly,
		ExhaustionETAWeeks: eta,
		HealthStatus:       status,
	}
	recordMetrics(clientID, h)
	return h, nil
}

// CaptureSnapshot computes health and persists it as a snapshot row
// for today's date.
func (t *Tracker) CaptureSnapshot(ctx context.Context, clientID string) (Health, error) {
	h, err := t.GetHealth(ctx, clientID)
	if err != nil {
		return Health{}, err
	}

	snap := &domain.TAMSnapshot{
		SnapshotDate:       time.Now().Truncate(24 * time.Hour),
		ClientID:           clientID,
		TotalUniverse:      h.TotalUniverse,
		NeverTouched:       h.NeverTouched,
		InCooldown:         h.InCooldown,
		AvailableNow:       h.AvailableNow,
		PermanentSuppress:  h.PermanentSuppress,
		InSequence:         h.InSequence,
		WonCustomer:        h.WonCustomer,
		BurnRateWeekly:     h.BurnRateWeekly,
		ExhaustionETAWeeks: h.ExhaustionETAWeeks,
		HealthStatus:       h.HealthStatus,
	}
	if err := t.store.UpsertTAMSnapshot(ctx, snap); err != nil {
		return Health{}, fmt.Errorf("upsert tam snapshot: %w", err)
	}
	return h, nil
}

// CaptureAllSnapshots captures the global snapshot and one snapshot
// per distinct client_id, concurrently: each client's pool query is
// independent of every other's, unlike the waterfall's per-provider
// cascade, so this is the one place in the package that fans out with
// errgroup instead of looping sequentially.
func (t *Tracker) CaptureAllSnapshots(ctx context.Context) (map[string]Health, error) {
	ctx, span := obs.Tracer.Start(ctx, "tam.CaptureAllSnapshots")
	defer span.End()

	clients, err := t.store.DistinctClientIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list distinct clients: %w", err)
	}

	targets := append([]string{""}, clients...)
	results := make([]Health, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, clientID := range targets {
		i, clientID := i, clientID
		g.Go(func() error {
			h, err := t.CaptureSnapshot(gctx, clientID)
			if err != nil {
				return fmt.Errorf("capture snapshot for %q: %w", clientID, err)
			}
			results[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]Health, len(targets))
	for i, clientID := range targets {
		out[clientID] = results[i]
	}
	return out, nil
}

// GetTrends returns up to limit snapshots for clientID ordered oldest
// to newest, for trend charting.
func (t *Tracker) GetTrends(ctx context.Context, clientID string, limit int) ([]*domain.TAMSnapshot, error) {
	snaps, err := t.store.GetTAMTrends(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("get tam trends: %w", err)
	}
	return snaps, nil
}
