// Package config holds the catalog configuration for one ClickHouse
// connection. Every knob is a flag whose default is seeded from the
// environment, and an optional YAML file supplies values underneath both.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables, explicit flags.
//
// Keys keep the catalog-property spelling, so a catalog file reads:
//
//	connection-url: clickhouse://localhost:9004/default
//	connection-user: default
//	clickhouse.connection-timeout: 10s
//	decimal-mapping: allow_overflow
//	decimal-default-scale: 4
//
// For tests, use LoadFromArgs with a private FlagSet and a map-backed getenv.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chbridge/internal/mapping"
	"chbridge/internal/storage"
)

// Config is the fully resolved catalog configuration. It is a plain value
// and safe to copy once loaded.
type Config struct {
	// File is the YAML catalog file the rest was read from, if any.
	File string `yaml:"-"`

	Catalog     string `yaml:"catalog"`
	StorageKind string `yaml:"storage-kind"`

	ConnectionURL      string `yaml:"connection-url"`
	ConnectionUser     string `yaml:"connection-user"`
	ConnectionPassword string `yaml:"connection-password"`

	ConnectionTimeout    time.Duration `yaml:"clickhouse.connection-timeout"`
	UseInformationSchema bool          `yaml:"clickhouse.jdbc.use-information-schema"`

	DecimalMapping       string `yaml:"decimal-mapping"`
	DecimalDefaultScale  int    `yaml:"decimal-default-scale"`
	DecimalRoundingMode  string `yaml:"decimal-rounding-mode"`
	TypesMappedToVarchar string `yaml:"jdbc-types-mapped-to-varchar"`
	TimeZone             string `yaml:"session.time-zone"`

	MetricsKind      string `yaml:"metrics.kind"`
	MetricsGateway   string `yaml:"metrics.pushgateway-url"`
	MetricsJob       string `yaml:"metrics.job"`
	MetricsDatadog   string `yaml:"metrics.datadog-addr"`
	MetricsNamespace string `yaml:"metrics.namespace"`
}

// Default returns the configuration of a catalog with nothing set.
func Default() Config {
	return Config{
		Catalog:              "clickhouse",
		StorageKind:          "clickhouse",
		ConnectionTimeout:    10 * time.Second,
		UseInformationSchema: true,
		DecimalMapping:       "strict",
		DecimalRoundingMode:  "HALF_UP",
		TimeZone:             "UTC",
		MetricsKind:          "none",
		MetricsJob:           "chbridge",
	}
}

// EnvName maps a key such as "clickhouse.connection-timeout" to
// CHBRIDGE_CLICKHOUSE_CONNECTION_TIMEOUT.
func EnvName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return "CHBRIDGE_" + strings.ToUpper(r.Replace(key))
}

// bind defines every flag on fs, writing into cfg. Each default is the
// environment value when set, otherwise def's field.
func bind(fs *flag.FlagSet, cfg *Config, getenv func(string) string, def Config) {
	str := func(p *string, key, d, usage string) {
		if v := getenv(EnvName(key)); v != "" {
			d = v
		}
		fs.StringVar(p, key, d, usage)
	}
	integer := func(p *int, key string, d int, usage string) {
		if v := getenv(EnvName(key)); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				d = i
			}
		}
		fs.IntVar(p, key, d, usage)
	}
	boolean := func(p *bool, key string, d bool, usage string) {
		switch strings.ToLower(getenv(EnvName(key))) {
		case "1", "true", "yes", "on":
			d = true
		case "0", "false", "no", "off":
			d = false
		}
		fs.BoolVar(p, key, d, usage)
	}
	duration := func(p *time.Duration, key string, d time.Duration, usage string) {
		if v := getenv(EnvName(key)); v != "" {
			if dd, err := time.ParseDuration(v); err == nil {
				d = dd
			}
		}
		fs.DurationVar(p, key, d, usage)
	}

	str(&cfg.File, "config", def.File, "YAML catalog file")
	str(&cfg.Catalog, "catalog", def.Catalog, "Catalog name used in logs and metrics")
	str(&cfg.StorageKind, "storage-kind", def.StorageKind, "Storage backend: clickhouse or sqlite")

	str(&cfg.ConnectionURL, "connection-url", def.ConnectionURL, "ClickHouse URL, e.g. clickhouse://host:9004/db")
	str(&cfg.ConnectionUser, "connection-user", def.ConnectionUser, "Connection user")
	str(&cfg.ConnectionPassword, "connection-password", def.ConnectionPassword, "Connection password")
	duration(&cfg.ConnectionTimeout, "clickhouse.connection-timeout", def.ConnectionTimeout, "Connect timeout")
	boolean(&cfg.UseInformationSchema, "clickhouse.jdbc.use-information-schema", def.UseInformationSchema,
		"Read metadata from information_schema instead of SHOW statements")

	str(&cfg.DecimalMapping, "decimal-mapping", def.DecimalMapping, "strict or allow_overflow")
	integer(&cfg.DecimalDefaultScale, "decimal-default-scale", def.DecimalDefaultScale, "Scale for over-wide decimals (0..38)")
	str(&cfg.DecimalRoundingMode, "decimal-rounding-mode", def.DecimalRoundingMode, "Rounding mode for over-wide decimals")
	str(&cfg.TypesMappedToVarchar, "jdbc-types-mapped-to-varchar", def.TypesMappedToVarchar,
		"Comma-separated native type names surfaced as varchar")
	str(&cfg.TimeZone, "session.time-zone", def.TimeZone, "IANA zone zoned timestamps are rendered in on write")

	str(&cfg.MetricsKind, "metrics.kind", def.MetricsKind, "none, prompush or datadog")
	str(&cfg.MetricsGateway, "metrics.pushgateway-url", def.MetricsGateway, "Pushgateway base URL")
	str(&cfg.MetricsJob, "metrics.job", def.MetricsJob, "Pushgateway job name")
	str(&cfg.MetricsDatadog, "metrics.datadog-addr", def.MetricsDatadog, "DogStatsD address")
	str(&cfg.MetricsNamespace, "metrics.namespace", def.MetricsNamespace, "DogStatsD metric prefix")
}

// LoadFromArgs defines the catalog flags on fs, seeds their defaults from
// getenv and parses args. When a config file is named (flag or env), it is
// read first and environment plus explicit flags are layered on top.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Default()
	bind(fs, &cfg, getenv, cfg)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return &cfg, nil
	}

	base, err := LoadFile(cfg.File)
	if err != nil {
		return nil, err
	}
	// Rebind over the file values so env still wins, then replay the flags
	// the user actually passed.
	out := base
	replay := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	bind(replay, &out, getenv, base)
	var replayErr error
	fs.Visit(func(f *flag.Flag) {
		if err := replay.Set(f.Name, f.Value.String()); err != nil && replayErr == nil {
			replayErr = fmt.Errorf("config: -%s: %w", f.Name, err)
		}
	})
	if replayErr != nil {
		return nil, replayErr
	}
	out.File = cfg.File
	return &out, nil
}

// LoadFile reads a YAML catalog file over Default(). Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML catalog properties over Default().
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// ForcedVarchar splits TypesMappedToVarchar, dropping blanks.
func (c Config) ForcedVarchar() []string {
	var out []string
	for _, p := range strings.Split(c.TypesMappedToVarchar, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Session builds the mapping session the catalog's translation calls use.
func (c Config) Session() (mapping.Session, error) {
	s := mapping.DefaultSession()

	dm, err := mapping.ParseDecimalMapping(c.DecimalMapping)
	if err != nil {
		return s, fmt.Errorf("config: decimal-mapping: %w", err)
	}
	rm, err := mapping.ParseRoundingMode(c.DecimalRoundingMode)
	if err != nil {
		return s, fmt.Errorf("config: decimal-rounding-mode: %w", err)
	}
	if c.DecimalDefaultScale < 0 || c.DecimalDefaultScale > 38 {
		return s, fmt.Errorf("config: decimal-default-scale=%d out of range 0..38", c.DecimalDefaultScale)
	}
	if c.TimeZone != "" {
		loc, err := time.LoadLocation(c.TimeZone)
		if err != nil {
			return s, fmt.Errorf("config: session.time-zone: %w", err)
		}
		s.TimeZone = loc
	}

	s.DecimalMapping = dm
	s.RoundingMode = rm
	s.DecimalDefaultScale = c.DecimalDefaultScale
	s.ForcedVarchar = c.ForcedVarchar()
	return s, nil
}

// Storage returns the backend selection for storage.New.
func (c Config) Storage() storage.Config {
	return storage.Config{
		Kind:                 c.StorageKind,
		DSN:                  c.ConnectionURL,
		User:                 c.ConnectionUser,
		Password:             c.ConnectionPassword,
		ConnectTimeout:       c.ConnectionTimeout,
		UseInformationSchema: c.UseInformationSchema,
	}
}
