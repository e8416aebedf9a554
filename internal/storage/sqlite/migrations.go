package sqlite

import "database/sql"

// schema stores application state as key/value blobs. The whole ledger lives
// under a single key, mirroring the local-storage layout of the mobile app.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
