// Command dispo-bridge polls the external bridge intake queue (spec
// §6) for pending jobs, maps each one to a waterfall request via
// internal/bridge, runs the cascade, and writes the result back onto
// the job row. Grounded on cmd/bd/main.go's signal-aware context and
// poll-loop shape, reduced to a single queue-drain loop.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightfunnel/disposition/internal/bridge"
	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/dedupecache"
	"github.com/brightfunnel/disposition/internal/fillengine"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/opshttp"
	"github.com/brightfunnel/disposition/internal/providers"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store"
	"github.com/brightfunnel/disposition/internal/store/factory"
	"github.com/brightfunnel/disposition/internal/waterfall"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providersSetup, err := obs.Setup(ctx, obs.Config{ServiceName: "dispo-bridge"})
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
	loader.OnHotReload(func(c *config.Config) { cfg = c })

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
	fe := fillengine.New(st, sm, hot)
	order := func() []string { return hot().Waterfall.ProviderOrder }
	adapterCfgs := func() []providers.AdapterConfig {
		var out []providers.AdapterConfig
		for _, p := range hot().Waterfall.Providers {
			if !p.Enabled {
				continue
			}
			out = append(out, providers.AdapterConfig{
				Name: p.Name, Endpoint: p.Endpoint, APIKey: p.APIKey,
				TimeoutSeconds: p.TimeoutSeconds, Priority: p.Priority,
			})
		}
		return out
	}
	engine := waterfall.New(st, fe, adapterCfgs, order)

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		engine = engine.WithDedupeCache(dedupecache.New(client, cfg.Redis.TTL))
	}

	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	log.Printf("dispo-bridge polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		default:
		}

		if err := processOne(ctx, st, engine); err != nil {
			log.Printf("process job: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func processOne(ctx context.Context, st store.Store, engine *waterfall.Engine) error {
	job, err := st.ClaimNextBridgeJob(ctx)
	if err != nil {
		return fmt.Errorf("claim bridge job: %w", err)
	}
	if job == nil {
		return nil
	}

	req, err := bridge.MapJobRow(job)
	if err != nil {
		_ = st.FailBridgeJob(ctx, job.ID, err.Error())
		return fmt.Errorf("map job %s: %w", job.ID, err)
	}

	result, err := engine.Fill(ctx, req)
	if err != nil {
		_ = st.FailBridgeJob(ctx, job.ID, err.Error())
		return fmt.Errorf("fill job %s: %w", job.ID, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result for job %s: %w", job.ID, err)
	}
	return st.CompleteBridgeJob(ctx, job.ID, resultJSON)
}
