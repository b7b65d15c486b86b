// Package config resolves the run configuration from defaults, an optional
// YAML/JSON file and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"page-monitor/pkg/fetcher"
	"page-monitor/pkg/httpclient"
	"page-monitor/pkg/store"
)

// Config is the fully resolved configuration of one invocation.
type Config struct {
	Store            string        `mapstructure:"store"`
	StateDir         string        `mapstructure:"state_dir"`
	ChangesDir       string        `mapstructure:"changes_dir"`
	DSN              string        `mapstructure:"dsn"`
	MongoDatabase    string        `mapstructure:"mongo_db"`
	SupabaseURL      string        `mapstructure:"supabase_url"`
	SupabaseKey      string        `mapstructure:"supabase_key"`
	SupabasePassword string        `mapstructure:"supabase_password"`
	DBMaxConns       int           `mapstructure:"db_max_conns"`
	DBConnMaxLife    time.Duration `mapstructure:"db_conn_max_life"`
	Extract          string        `mapstructure:"extract"`
	Client           string        `mapstructure:"client"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	SkipProbe        bool          `mapstructure:"skip_probe"`
	FailOnEmpty      bool          `mapstructure:"fail_on_empty"`
	PrintDiff        bool          `mapstructure:"print_diff"`
	Verbose          bool          `mapstructure:"verbose"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Store:         string(store.BackendFile),
	StateDir:      "state",
	ChangesDir:    "changes",
	MongoDatabase: "pagemonitor",
	Extract:       string(fetcher.ModeText),
	Client:        string(httpclient.BrowserClient),
	Timeout:       30 * time.Second,
	ProbeTimeout:  10 * time.Second,
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"store":             "store",
	"state-dir":         "state_dir",
	"changes-dir":       "changes_dir",
	"dsn":               "dsn",
	"mongo-db":          "mongo_db",
	"supabase-url":      "supabase_url",
	"supabase-key":      "supabase_key",
	"supabase-password": "supabase_password",
	"db-max-conns":      "db_max_conns",
	"db-conn-max-life":  "db_conn_max_life",
	"extract":           "extract",
	"client":            "client",
	"timeout":           "timeout",
	"probe-timeout":     "probe_timeout",
	"skip-probe":        "skip_probe",
	"fail-on-empty":     "fail_on_empty",
	"print-diff":        "print_diff",
	"verbose":           "verbose",
}

// InitFlags registers the configuration flags on fs. The --config flag is
// registered separately by the caller.
func InitFlags(fs *pflag.FlagSet) {
	d := DefaultConfig
	fs.String("store", d.Store, "Storage backend: "+backendNames())
	fs.String("state-dir", d.StateDir, "Directory holding previous_state.json (file store)")
	fs.String("changes-dir", d.ChangesDir, "Directory holding change reports (file store)")
	fs.String("dsn", d.DSN, "SQLite path, Postgres URL, Supabase connection string or Mongo URI")
	fs.String("mongo-db", d.MongoDatabase, "Mongo database name")
	fs.String("supabase-url", d.SupabaseURL, "Supabase project URL")
	fs.String("supabase-key", d.SupabaseKey, "Supabase API key")
	fs.String("supabase-password", d.SupabasePassword, "Supabase database password (enables the direct Postgres connection)")
	fs.Int("db-max-conns", d.DBMaxConns, "Maximum open Postgres connections (0 = unlimited)")
	fs.Duration("db-conn-max-life", d.DBConnMaxLife, "Maximum lifetime of a Postgres connection (0 = unlimited)")
	fs.String("extract", d.Extract, "HTML extraction mode: text or article")
	fs.String("client", d.Client, "HTTP header profile: browser or cloudflare")
	fs.Duration("timeout", d.Timeout, "Page download timeout")
	fs.Duration("probe-timeout", d.ProbeTimeout, "Reachability check timeout")
	fs.Bool("skip-probe", d.SkipProbe, "Skip the HEAD reachability check")
	fs.Bool("fail-on-empty", d.FailOnEmpty, "Fail when the page has no visible text")
	fs.Bool("print-diff", d.PrintDiff, "Print detected changes to the terminal")
	fs.BoolP("verbose", "v", d.Verbose, "Enable debug logging")
}

// Load resolves the configuration. configFile may be empty. Only flags
// present in fs are bound, so subcommands may register a subset.
func Load(fs *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("store", d.Store)
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("changes_dir", d.ChangesDir)
	v.SetDefault("dsn", d.DSN)
	v.SetDefault("mongo_db", d.MongoDatabase)
	v.SetDefault("supabase_url", d.SupabaseURL)
	v.SetDefault("supabase_key", d.SupabaseKey)
	v.SetDefault("supabase_password", d.SupabasePassword)
	v.SetDefault("db_max_conns", d.DBMaxConns)
	v.SetDefault("db_conn_max_life", d.DBConnMaxLife)
	v.SetDefault("extract", d.Extract)
	v.SetDefault("client", d.Client)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("probe_timeout", d.ProbeTimeout)
	v.SetDefault("skip_probe", d.SkipProbe)
	v.SetDefault("fail_on_empty", d.FailOnEmpty)
	v.SetDefault("print_diff", d.PrintDiff)
	v.SetDefault("verbose", d.Verbose)
}

// Validate checks enumerated values and backend requirements.
func (c *Config) Validate() error {
	if !knownBackend(store.Backend(c.Store)) {
		return fmt.Errorf("unknown store %q (want one of %s)", c.Store, backendNames())
	}
	if _, err := fetcher.ParseMode(c.Extract); err != nil {
		return err
	}
	if _, err := httpclient.ParseClientType(c.Client); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.DBMaxConns < 0 || c.DBConnMaxLife < 0 {
		return fmt.Errorf("database pool settings must not be negative")
	}

	switch store.Backend(c.Store) {
	case store.BackendFile:
		if c.StateDir == "" || c.ChangesDir == "" {
			return fmt.Errorf("file store needs both a state and a changes directory")
		}
	case store.BackendSQLite, store.BackendPostgres, store.BackendMongo:
		if c.DSN == "" {
			return fmt.Errorf("%s store needs --dsn", c.Store)
		}
	case store.BackendSupabase:
		if c.DSN == "" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
			return fmt.Errorf("supabase store needs --dsn or both --supabase-url and --supabase-key")
		}
	}
	return nil
}

// StoreOptions returns the storage part of the configuration.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:          store.Backend(c.Store),
		StateDir:         c.StateDir,
		ChangesDir:       c.ChangesDir,
		DSN:              c.DSN,
		MongoDatabase:    c.MongoDatabase,
		SupabaseURL:      c.SupabaseURL,
		SupabaseKey:      c.SupabaseKey,
		SupabasePassword: c.SupabasePassword,
		MaxOpenConns:     c.DBMaxConns,
		ConnMaxLife:      c.DBConnMaxLife,
	}
}

// FetcherConfig returns the fetching part of the configuration. Values were
// checked by Validate.
func (c *Config) FetcherConfig() fetcher.Config {
	mode, _ := fetcher.ParseMode(c.Extract)
	clientType, _ := httpclient.ParseClientType(c.Client)
	return fetcher.Config{
		ClientType:   clientType,
		Timeout:      c.Timeout,
		ProbeTimeout: c.ProbeTimeout,
		Mode:         mode,
		FailOnEmpty:  c.FailOnEmpty,
	}
}

func knownBackend(b store.Backend) bool {
	for _, known := range store.Backends {
		if b == known {
			return true
		}
	}
	return false
}

func backendNames() string {
	names := make([]string, len(store.Backends))
	for i, b := range store.Backends {
		names[i] = string(b)
	}
	return strings.Join(names, "|")
}
