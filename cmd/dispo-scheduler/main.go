// Command dispo-scheduler runs the periodic maintenance sweeps
// (expired cooldowns, stale data, expired company ownership) and the
// daily TAM snapshot capture on a cron schedule. Grounded on
// robfig/cron/v3 usage in the pack's connector-scheduling code, wired
// here against this module's own statemachine/deconfliction/tam
// packages.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/deconfliction"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/opshttp"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store/factory"
	"github.com/brightfunnel/disposition/internal/tam"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	sweepSchedule := flag.String("sweep-cron", "*/15 * * * *", "Cron schedule for the cooldown/stale/ownership sweeps")
	snapshotSchedule := flag.String("snapshot-cron", "0 2 * * *", "Cron schedule for the TAM snapshot capture")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providersSetup, err := obs.Setup(ctx, obs.Config{ServiceName: "dispo-scheduler"})
	if err != nil {
		log.Fatalf("setup observability: %v", err)
	}
	defer func() {
		_ = providersSetup.ShutdownTrace(context.Background())
		_ = providersSetup.ShutdownMetric(context.Background())
	}()

	loader, err := config.NewLoader(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	hot := func() config.HotConfig {
		c, err := loader.Load()
		if err != nil {
			return cfg.Hot
		}
		return c.Hot
	}
	loader.Watch()

	st, err := factory.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	if cfg.HTTPAddr != "" {
		go func() {
			if err := opshttp.Serve(ctx, cfg.HTTPAddr, st); err != nil {
				log.Printf("ops http server: %v", err)
			}
		}()
	}

	sm := statemachine.New(st, hot)
	dc := deconfliction.New(st, hot)
	tracker := tam.New(st, hot)

	c := cron.New()
	if _, err := c.AddFunc(*sweepSchedule, func() {
		cooldowns, err := sm.SweepExpiredCooldowns(ctx)
		if err != nil {
			log.Printf("sweep cooldowns: %v", err)
		}
		stale, err := sm.SweepStaleData(ctx)
		if err != nil {
			log.Printf("sweep stale data: %v", err)
		}
		expired, err := dc.SweepExpired(ctx)
		if err != nil {
			log.Printf("sweep expired ownership: %v", err)
		}
		log.Printf("sweep complete: cooldowns=%d stale=%d ownership=%d", cooldowns, stale, expired)
	}); err != nil {
		log.Fatalf("schedule sweep: %v", err)
	}

	if _, err := c.AddFunc(*snapshotSchedule, func() {
		results, err := tracker.CaptureAllSnapshots(ctx)
		if err != nil {
			log.Printf("capture snapshots: %v", err)
			return
		}
		log.Printf("captured %d tam snapshots", len(results))
	}); err != nil {
		log.Fatalf("schedule snapshot capture: %v", err)
	}

	c.Start()
	log.Printf("dispo-scheduler running: sweep=%q snapshot=%q", *sweepSchedule, *snapshotSchedule)

	<-ctx.Done()
	log.Println("shutting down")
	sctx := c.Stop()
	<-sctx.Done()
}
