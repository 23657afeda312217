// Package config loads linksaver settings from defaults, an optional
// config.yaml, LINKSAVER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/tab"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "LINKSAVER"
	appDirName     = "linksaver"
)

// Config keys.
const (
	KeyDB                 = "db"
	KeyHost               = "host"
	KeyPort               = "port"
	KeyStrict             = "strict"
	KeyQuotaPreset        = "quota.preset"
	KeyQuotaBytes         = "quota.bytes"
	KeyQuotaBytesPerItem  = "quota.bytes_per_item"
	KeyQuotaMaxItems      = "quota.max_items"
	KeyResolverMode       = "resolver.mode"
	KeyResolverTimeout    = "resolver.timeout"
	KeyResolverChromePath = "resolver.chrome_path"
	KeyResolverHeadful    = "resolver.headful"
	KeyResolverInlineIcon = "resolver.inline_icon"
	KeyEnrichWorkers      = "enrich_workers"
	KeyIDGenerator        = "id_generator"
)

// Resolver modes.
const (
	ResolverHTTP    = "http"
	ResolverBrowser = "browser"
	ResolverNone    = "none"
)

// Link id generators.
const (
	IDUUIDv7 = "uuidv7"
	IDUUIDv4 = "uuidv4"
	IDTime   = "time"
)

// Quota presets.
const (
	QuotaNone = "none"
	QuotaSync = "sync"
)

// flagNames maps config keys to the command-line flags that override them.
// Keys whose flag is not defined on a command are simply not bound.
var flagNames = map[string]string{
	KeyDB:                 "db",
	KeyHost:               "host",
	KeyPort:               "port",
	KeyStrict:             "strict",
	KeyQuotaPreset:        "quota",
	KeyResolverMode:       "resolver",
	KeyResolverTimeout:    "timeout",
	KeyResolverChromePath: "chrome-path",
	KeyResolverHeadful:    "headful",
	KeyResolverInlineIcon: "inline-icon",
	KeyEnrichWorkers:      "enrich-workers",
	KeyIDGenerator:        "id-generator",
}

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// ResolverConfig selects and tunes the page resolver.
type ResolverConfig struct {
	Mode       string
	Timeout    time.Duration
	ChromePath string
	Headful    bool
	InlineIcon bool
}

// Config is the resolved configuration.
type Config struct {
	// DB is the gateway DSN, see db.Open.
	DB            string
	Host          string
	Port          int
	Strict        bool
	Quota         db.Quota
	Resolver      ResolverConfig
	EnrichWorkers int
	// IDGenerator names the generator for new link ids.
	IDGenerator string
	// File is the config file that was read, or "" if none was found.
	File string
}

// Load reads the configuration. configFile names an explicit config file; if
// empty, config.yaml is looked up in DefaultDir and may be absent. flags may
// be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing config.yaml is not an error unless it was named explicitly.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// DefaultDir returns $XDG_CONFIG_HOME/linksaver (or the platform equivalent).
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDB, "linksaver.db")
	v.SetDefault(KeyHost, "localhost")
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyQuotaPreset, QuotaNone)
	v.SetDefault(KeyQuotaBytes, 0)
	v.SetDefault(KeyQuotaBytesPerItem, 0)
	v.SetDefault(KeyQuotaMaxItems, 0)
	v.SetDefault(KeyResolverMode, ResolverHTTP)
	v.SetDefault(KeyResolverTimeout, time.Duration(0))
	v.SetDefault(KeyResolverChromePath, "")
	v.SetDefault(KeyResolverHeadful, false)
	v.SetDefault(KeyResolverInlineIcon, true)
	v.SetDefault(KeyEnrichWorkers, 1)
	v.SetDefault(KeyIDGenerator, IDUUIDv7)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DB:     strings.TrimSpace(v.GetString(KeyDB)),
		Host:   v.GetString(KeyHost),
		Port:   v.GetInt(KeyPort),
		Strict: v.GetBool(KeyStrict),
		Resolver: ResolverConfig{
			Mode:       strings.ToLower(strings.TrimSpace(v.GetString(KeyResolverMode))),
			Timeout:    v.GetDuration(KeyResolverTimeout),
			ChromePath: v.GetString(KeyResolverChromePath),
			Headful:    v.GetBool(KeyResolverHeadful),
			InlineIcon: v.GetBool(KeyResolverInlineIcon),
		},
		EnrichWorkers: v.GetInt(KeyEnrichWorkers),
		IDGenerator:   strings.ToLower(strings.TrimSpace(v.GetString(KeyIDGenerator))),
	}

	quota, err := quotaFor(v.GetString(KeyQuotaPreset))
	if err != nil {
		return nil, err
	}
	if n := v.GetInt(KeyQuotaBytes); n > 0 {
		quota.Bytes = n
	}
	if n := v.GetInt(KeyQuotaBytesPerItem); n > 0 {
		quota.BytesPerItem = n
	}
	if n := v.GetInt(KeyQuotaMaxItems); n > 0 {
		quota.MaxItems = n
	}
	cfg.Quota = quota

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func quotaFor(preset string) (db.Quota, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", QuotaNone:
		return db.Quota{}, nil
	case QuotaSync:
		return db.SyncQuota, nil
	default:
		return db.Quota{}, fmt.Errorf("%w: unknown quota preset %q (want %s or %s)", ErrInvalid, preset, QuotaNone, QuotaSync)
	}
}

func (c *Config) validate() error {
	if c.DB == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalid, KeyDB)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalid, KeyPort, c.Port)
	}
	switch c.Resolver.Mode {
	case ResolverHTTP, ResolverBrowser, ResolverNone:
	default:
		return fmt.Errorf("%w: unknown %s %q (want %s, %s or %s)", ErrInvalid, KeyResolverMode, c.Resolver.Mode, ResolverHTTP, ResolverBrowser, ResolverNone)
	}
	if c.EnrichWorkers < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyEnrichWorkers)
	}
	switch c.IDGenerator {
	case IDUUIDv7, IDUUIDv4, IDTime:
	default:
		return fmt.Errorf("%w: unknown %s %q (want %s, %s or %s)", ErrInvalid, KeyIDGenerator, c.IDGenerator, IDUUIDv7, IDUUIDv4, IDTime)
	}
	return nil
}

// Addr is the panel's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewIDGenerator returns the configured link id generator.
func (c *Config) NewIDGenerator() links.Generator {
	switch c.IDGenerator {
	case IDUUIDv4:
		return links.UUIDv4()
	case IDTime:
		return links.TimeBased(time.Now)
	default:
		return links.Strong()
	}
}

// NewResolver builds the configured page resolver, or nil for mode "none".
func (c *Config) NewResolver() tab.Resolver {
	switch c.Resolver.Mode {
	case ResolverBrowser:
		return &tab.BrowserResolver{
			ChromePath: c.Resolver.ChromePath,
			Headless:   !c.Resolver.Headful,
			Timeout:    c.Resolver.Timeout,
			InlineIcon: c.Resolver.InlineIcon,
		}
	case ResolverHTTP:
		return tab.NewHTTPResolver(c.Resolver.Timeout, c.Resolver.InlineIcon)
	default:
		return nil
	}
}
