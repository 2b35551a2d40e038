// Command dispositionctl is the operator CLI for the disposition
// control plane: run a campaign fill, sweep cooldowns/stale data/
// expired ownership, or capture a TAM snapshot against a configured
// store. Grounded on cmd/bd/main.go's cobra root + signal-aware
// context pattern, trimmed to this module's much smaller command set.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/deconfliction"
	"github.com/brightfunnel/disposition/internal/fillengine"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/providers"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store"
	"github.com/brightfunnel/disposition/internal/store/factory"
	"github.com/brightfunnel/disposition/internal/tam"
	"github.com/brightfunnel/disposition/internal/waterfall"
)

var (
	configPath string
	jsonOutput bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	loader *config.Loader
	st     store.Store
)

var rootCmd = &cobra.Command{
	Use:   "dispositionctl",
	Short: "dispositionctl - operate the disposition control plane",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		obsProviders, err := obs.Setup(rootCtx, obs.Config{ServiceName: "dispositionctl"})
		if err != nil {
			return fmt.Errorf("setup observability: %w", err)
		}
		go func() {
			<-rootCtx.Done()
			_ = obsProviders.ShutdownTrace(context.Background())
			_ = obsProviders.ShutdownMetric(context.Background())
		}()

		l, err := config.NewLoader(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loader = l

		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("parse config: %w", err)
		}

		s, err := factory.New(rootCtx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		st = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			_ = st.Close()
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func hotConfig() config.HotConfig {
	cfg, err := loader.Load()
	if err != nil {
		return config.HotConfig{}
	}
	return cfg.Hot
}

// adapterConfigsFromHotConfig adapts the configured provider credential
// list into the shape internal/providers expects, re-read on every
// call so a hot-reloaded API key takes effect on the next waterfall run.
func adapterConfigsFromHotConfig() []providers.AdapterConfig {
	cfgs := hotConfig().Waterfall.Providers
	out := make([]providers.AdapterConfig, 0, len(cfgs))
	for _, c := range cfgs {
		if !c.Enabled {
			continue
		}
		out = append(out, providers.AdapterConfig{
			Name:           c.Name,
			Endpoint:       c.Endpoint,
			APIKey:         c.APIKey,
			TimeoutSeconds: c.TimeoutSeconds,
			Priority:       c.Priority,
		})
	}
	return out
}

var validate = validator.New()

// fillArgs validates the operator-supplied flags for the fill command
// before they reach waterfall.Request, the one place in this binary
// where external (CLI) input crosses into a domain operation.
type fillArgs struct {
	CampaignID string `validate:"required"`
	ClientID   string `validate:"required"`
	Volume     int    `validate:"required,gt=0"`
}

func printResult(v any) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Printf("%+v\n", v)
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Run a waterfall campaign fill",
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		clientID, _ := cmd.Flags().GetString("client")
		volume, _ := cmd.Flags().GetInt("volume")
		enableExternal, _ := cmd.Flags().GetBool("external")

		if err := validate.Struct(fillArgs{CampaignID: campaignID, ClientID: clientID, Volume: volume}); err != nil {
			return fmt.Errorf("invalid fill arguments: %w", err)
		}

		sm := statemachine.New(st, hotConfig)
		fe := fillengine.New(st, sm, hotConfig)

		order := func() []string {
			return hotConfig().Waterfall.ProviderOrder
		}
		engine := waterfall.New(st, fe, adapterConfigsFromHotConfig, order)

		result, err := engine.Fill(rootCtx, waterfall.Request{
			CampaignID:         campaignID,
			ClientID:           clientID,
			Volume:             volume,
			EnableExternal:     enableExternal,
			MaxExternalCredits: hotConfig().Waterfall.MaxExternalCredits,
		})
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the cooldown, stale-data, and ownership-expiry sweeps",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm := statemachine.New(st, hotConfig)
		dc := deconfliction.New(st, hotConfig)

		cooldowns, err := sm.SweepExpiredCooldowns(rootCtx)
		if err != nil {
			return fmt.Errorf("sweep cooldowns: %w", err)
		}
		stale, err := sm.SweepStaleData(rootCtx)
		if err != nil {
			return fmt.Errorf("sweep stale data: %w", err)
		}
		expired, err := dc.SweepExpired(rootCtx)
		if err != nil {
			return fmt.Errorf("sweep expired ownership: %w", err)
		}

		printResult(map[string]int{
			"cooldowns_cleared": cooldowns,
			"stale_flagged":     stale,
			"ownership_expired": expired,
		})
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture a TAM health snapshot for every client",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := tam.New(st, hotConfig)
		results, err := tracker.CaptureAllSnapshots(rootCtx)
		if err != nil {
			return err
		}
		printResult(results)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env fallback: DISPO_*)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	fillCmd.Flags().String("campaign", "", "Campaign ID")
	fillCmd.Flags().String("client", "", "Client ID")
	fillCmd.Flags().Int("volume", 0, "Contacts requested")
	fillCmd.Flags().Bool("external", false, "Enable the external provider cascade")
	_ = fillCmd.MarkFlagRequired("campaign")
	_ = fillCmd.MarkFlagRequired("client")
	_ = fillCmd.MarkFlagRequired("volume")

	rootCmd.AddCommand(fillCmd, sweepCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
