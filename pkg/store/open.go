package store

import (
	"context"
	"fmt"
	"time"

	"page-monitor/pkg/db"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendSupabase Backend = "supabase"
	BackendMongo    Backend = "mongo"
)

// Backends lists the backends accepted by Open.
var Backends = []Backend{BackendFile, BackendMemory, BackendSQLite, BackendPostgres, BackendSupabase, BackendMongo}

// Options selects and configures a backend.
type Options struct {
	Backend Backend

	// File backend.
	StateDir   string
	ChangesDir string

	// DSN is the SQLite path, the Postgres URL, the Supabase connection
	// string or the Mongo URI depending on Backend.
	DSN string

	// MongoDatabase names the Mongo database.
	MongoDatabase string

	// Supabase project access.
	SupabaseURL      string
	SupabaseKey      string
	SupabasePassword string

	// Pool tuning for Postgres and direct Supabase connections. Zero keeps
	// the database/sql defaults.
	MaxOpenConns int
	ConnMaxLife  time.Duration
}

// Open connects the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.StateDir, opts.ChangesDir)

	case BackendMemory:
		return NewMemoryStore(), nil

	case BackendSQLite:
		client := db.NewSQLiteClient(opts.DSN)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return sqlStoreOrClose(ctx, client, SQLite, client.Close)

	case BackendPostgres:
		client := db.NewPostgresClient(db.PostgresConfig{
			DSN:          opts.DSN,
			MaxOpenConns: opts.MaxOpenConns,
			ConnMaxLife:  opts.ConnMaxLife,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return sqlStoreOrClose(ctx, client, Postgres, client.Close)

	case BackendSupabase:
		client := db.NewSupabaseClient(db.SupabaseConfig{
			ConnectionString: opts.DSN,
			URL:              opts.SupabaseURL,
			Key:              opts.SupabaseKey,
			Password:         opts.SupabasePassword,
			MaxOpenConns:     opts.MaxOpenConns,
			ConnMaxLife:      opts.ConnMaxLife,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if client.HasDirectDB() {
			return sqlStoreOrClose(ctx, client, Postgres, client.Close)
		}
		return NewRESTStore(client.SDK())

	case BackendMongo:
		client := db.NewMongoClient(opts.DSN, opts.MongoDatabase)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		s, err := NewMongoStore(client.Collection(snapshotsCollection), client.Collection(reportsCollection), client.Close)
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func sqlStoreOrClose(ctx context.Context, provider db.DBProvider, dialect Dialect, closer func() error) (Store, error) {
	s, err := NewSQLStore(ctx, provider, dialect, closer)
	if err != nil {
		_ = closer()
		return nil, err
	}
	return s, nil
}
