// Package config loads and hot-reloads the disposition control plane's
// tunables: cooldown defaults, ownership duration, fill ratios, TAM
// thresholds, waterfall toggles and per-provider credentials.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CooldownDefaults holds the per-channel, per-disposition cooldown
// durations applied on a successful transition (spec §4.2 step 2).
type CooldownDefaults struct {
	NoResponseDays int `mapstructure:"no_response_days"`
	NeutralDays    int `mapstructure:"neutral_days"`
	NegativeDays   int `mapstructure:"negative_days"`
	LostClosedDays int `mapstructure:"lost_closed_days"`
	LinkedInDays   int `mapstructure:"linkedin_days"`
	PhoneDays      int `mapstructure:"phone_days"`
}

// DatabaseConfig holds connection settings for whichever relational
// driver is selected. Driver picks the backend and DSN is passed to it.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres", "mysql" or "memory"
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ProviderConfig holds the credentials and endpoint for one external
// lead-source adapter (spec §4.6).
type ProviderConfig struct {
	Name     string `mapstructure:"name"`
	Enabled  bool   `mapstructure:"enabled"`
	Priority int    `mapstructure:"priority"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// WaterfallConfig holds the cascade toggles of spec §4.7.
type WaterfallConfig struct {
	Enabled            bool              `mapstructure:"enabled"`
	MaxExternalCredits float64           `mapstructure:"max_external_credits"`
	ProviderOrder      []string          `mapstructure:"provider_order"`
	Providers          []ProviderConfig  `mapstructure:"providers"`
}

// RedisConfig holds the optional write-back dedupe cache settings.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	DB      int    `mapstructure:"db"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Config is the fully-resolved tunable set. Fields are grouped into
// Hot (safe to change at runtime, watched by fsnotify) and the rest
// (bootstrap-only: read once at process start).
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`

	Hot HotConfig `mapstructure:",squash"`

	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	DefaultVolume       int    `mapstructure:"default_volume"`
	HTTPAddr            string `mapstructure:"http_addr"`
}

// HotConfig is the subset of Config that IsHotKey allows to change
// between reads without a process restart: cooldowns, ratios, and TAM
// thresholds are operator dials, not architecture.
type HotConfig struct {
	Cooldowns               CooldownDefaults `mapstructure:"cooldowns"`
	OwnershipDurationMonths int              `mapstructure:"ownership_duration_months"`
	MaxContactsPerCompany   int              `mapstructure:"max_contacts_per_company"`
	FreshRetouchRatio       float64          `mapstructure:"fresh_retouch_ratio"`
	StaleDataMonths         int              `mapstructure:"stale_data_months"`
	FreshDataMaxAgeDays     int              `mapstructure:"fresh_data_max_age_days"`
	TAMWarningWeeks         float64          `mapstructure:"tam_warning_weeks"`
	TAMCriticalWeeks        float64          `mapstructure:"tam_critical_weeks"`
	Waterfall               WaterfallConfig `mapstructure:"waterfall"`
}

// hotKeys are the top-level viper keys that may be changed at runtime
// without restarting the process. Everything else (database DSN,
// redis address, HTTP listen address) is read once at bootstrap,
// mirroring the teacher's split between config.yaml-only bootstrap
// keys and hot-reloadable settings.
var hotKeys = map[string]bool{
	"cooldowns":                 true,
	"ownership_duration_months": true,
	"max_contacts_per_company":  true,
	"fresh_retouch_ratio":       true,
	"stale_data_months":         true,
	"fresh_data_max_age_days":   true,
	"tam_warning_weeks":         true,
	"tam_critical_weeks":        true,
	"waterfall":                 true,
}

// IsHotKey reports whether key (or a dotted child of it) is safe to
// apply from a reload without restarting the process.
func IsHotKey(key string) bool {
	if hotKeys[key] {
		return true
	}
	root := strings.SplitN(key, ".", 2)[0]
	return hotKeys[root]
}

func defaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("cooldowns.no_response_days", 90)
	v.SetDefault("cooldowns.neutral_days", 45)
	v.SetDefault("cooldowns.negative_days", 180)
	v.SetDefault("cooldowns.lost_closed_days", 90)
	v.SetDefault("cooldowns.linkedin_days", 30)
	v.SetDefault("cooldowns.phone_days", 60)

	v.SetDefault("ownership_duration_months", 12)
	v.SetDefault("max_contacts_per_company", 3)
	v.SetDefault("fresh_retouch_ratio", 0.7)
	v.SetDefault("stale_data_months", 6)
	v.SetDefault("fresh_data_max_age_days", 180)
	v.SetDefault("tam_warning_weeks", 8.0)
	v.SetDefault("tam_critical_weeks", 4.0)

	v.SetDefault("waterfall.enabled", false)
	v.SetDefault("waterfall.max_external_credits", 50.0)
	v.SetDefault("waterfall.provider_order", []string{"internal", "ai_ark", "clay", "jina", "spider"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("poll_interval_seconds", 5)
	v.SetDefault("default_volume", 500)
	v.SetDefault("http_addr", ":8081")
}

// Loader wraps a viper instance bound to a config file plus the
// DISPO_ prefixed environment, and notifies subscribers when a hot key
// changes on disk.
type Loader struct {
	v    *viper.Viper
	subs []func(*Config)
}

// NewLoader builds a Loader. configPath may be empty, in which case
// only environment variables and defaults apply.
func NewLoader(configPath string) (*Loader, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("DISPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	return &Loader{v: v}, nil
}

// Load parses the current viper state into a Config.
func (l *Loader) Load() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// OnHotReload registers a callback invoked with the freshly reloaded
// Config whenever the watched file changes. The callback still
// receives a full Config; it is the caller's responsibility to only
// apply the HotConfig portion at runtime (bootstrap fields like
// Database are safe to read but must not be re-applied to a live
// connection pool).
func (l *Loader) OnHotReload(fn func(*Config)) {
	l.subs = append(l.subs, fn)
}

// Watch starts an fsnotify-backed watch on the bound config file,
// re-parsing and notifying subscribers on every write. It is a no-op
// if the Loader was built without a config path.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := l.Load()
		if err != nil {
			return
		}
		for _, fn := range l.subs {
			fn(cfg)
		}
	})
	l.v.WatchConfig()
}
