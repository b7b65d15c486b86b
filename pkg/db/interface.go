package db

import "database/sql"

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// PostgresClient, SQLiteClient and SupabaseClient (in direct mode) all satisfy it,
// so the SQL-backed store does not care which one it was given.
type DBProvider interface {
	DB() *sql.DB
}
