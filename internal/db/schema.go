package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    name_ar     TEXT,
    description TEXT,
    icon        TEXT,
    type        TEXT NOT NULL CHECK (type IN ('central', 'branch', 'global')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS app_users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'mammal_employee'
                  CHECK (role IN ('admin', 'warehouse_manager', 'branch_manager', 'mammal_employee')),
    branch_code   TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_app_users_username_active
    ON app_users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS inventory_items (
    id            INTEGER PRIMARY KEY,
    location_id   TEXT NOT NULL,
    name_en       TEXT NOT NULL,
    name_ar       TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL DEFAULT '',
    unit          TEXT NOT NULL DEFAULT '',
    quantity      REAL NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    min_threshold REAL NOT NULL DEFAULT 0 CHECK (min_threshold >= 0),
    description   TEXT NOT NULL DEFAULT '',
    image         BLOB,
    image_mime    TEXT,
    last_updated  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_inventory_items_location
    ON inventory_items(location_id);

CREATE TABLE IF NOT EXISTS transactions (
    id               INTEGER PRIMARY KEY,
    group_id         TEXT NOT NULL,
    type             TEXT NOT NULL CHECK (type IN ('transfer', 'usage', 'receive')),
    status           TEXT NOT NULL CHECK (status IN
                     ('pending_source', 'pending_target', 'completed', 'cancelled', 'rejected')),
    from_location    TEXT NOT NULL DEFAULT '',
    to_location      TEXT NOT NULL DEFAULT '',
    item_name_en     TEXT NOT NULL,
    item_name_ar     TEXT NOT NULL DEFAULT '',
    quantity         REAL NOT NULL CHECK (quantity > 0),
    unit             TEXT NOT NULL DEFAULT '',
    performed_by     TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    rejection_reason TEXT NOT NULL DEFAULT '',
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_group
    ON transactions(group_id);

CREATE INDEX IF NOT EXISTS idx_transactions_to_location
    ON transactions(to_location, status);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{}

// Migrate creates the schema and applies any pending migrations.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
