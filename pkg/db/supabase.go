package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// ConnectionString is the Supabase Postgres connection string. If empty it
	// is derived from URL and Password.
	ConnectionString string

	// URL is the project URL, e.g. "https://[project-ref].supabase.co".
	URL string

	// Key is the API key used by the SDK (service_role for server-side use).
	Key string

	// Password is the database password, not the API key.
	Password string

	// Pool tuning for the direct connection, as in PostgresConfig.
	MaxOpenConns int
	ConnMaxLife  time.Duration
}

// SupabaseClient gives access to a Supabase project either through a direct
// Postgres connection or, when no password is configured, through the REST API only.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

// NewSupabaseClient constructs a Supabase client. Call Connect before use.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect initializes the SDK (when URL and key are set) and the direct
// database connection (when a connection string or password is set).
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.URL != "" && c.cfg.Key != "" {
		sdk, err := supabase.NewClient(c.cfg.URL, c.cfg.Key, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" && c.cfg.Password != "" {
		var err error
		if connStr, err = buildSupabaseConnString(c.cfg.URL, c.cfg.Password); err != nil {
			return err
		}
	}

	if connStr != "" {
		// The Supabase pooler does not support prepared statement caching.
		connStr = addConnParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return fmt.Errorf("open supabase postgres: %w", err)
		}
		applyPool(db, c.cfg.MaxOpenConns, c.cfg.ConnMaxLife)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("ping supabase postgres: %w", err)
		}
		c.db = db
	}

	if c.db == nil && c.sdk == nil {
		return fmt.Errorf("either connection string/password or Supabase URL+key must be provided")
	}
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the direct database handle, nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB returns true if a direct database connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the Supabase SDK client, nil if URL and key were not provided.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

// buildSupabaseConnString derives the direct connection string from the
// project URL: https://[ref].supabase.co -> db.[ref].supabase.co:5432.
func buildSupabaseConnString(projectURL, password string) (string, error) {
	if projectURL == "" {
		return "", fmt.Errorf("supabase URL is required when connection string is not provided")
	}

	parsed, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("invalid supabase URL format: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), parts[0]), nil
}

// addConnParam adds a query parameter to the connection string if not already present.
func addConnParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
