/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cachestore

import (
	"database/sql"
	"fmt"
)

// migration is one forward-only schema step. Migrations never edit history;
// a mistake is fixed by a later, higher-numbered migration.
type migration struct {
	version int
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		stmt: `
CREATE TABLE IF NOT EXISTS bars (
	symbol     TEXT    NOT NULL,
	timeframe  TEXT    NOT NULL,
	timestamp  INTEGER NOT NULL, -- unix millis, UTC
	provider   TEXT    NOT NULL,
	revision   INTEGER NOT NULL,
	open       TEXT    NOT NULL,
	high       TEXT    NOT NULL,
	low        TEXT    NOT NULL,
	close      TEXT    NOT NULL,
	volume     TEXT    NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (symbol, timeframe, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_bars_range ON bars (symbol, timeframe, timestamp);
`,
	},
	{
		version: 2,
		stmt: `
CREATE TABLE IF NOT EXISTS corrections (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT    NOT NULL,
	timeframe   TEXT    NOT NULL,
	timestamp   INTEGER NOT NULL,
	event_type  TEXT    NOT NULL,
	old_provider TEXT,
	old_revision INTEGER,
	new_provider TEXT    NOT NULL,
	new_revision INTEGER NOT NULL,
	occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_key ON corrections (symbol, timeframe, timestamp);
`,
	},
	{
		version: 3,
		stmt: `
ALTER TABLE corrections ADD COLUMN old_open  TEXT;
ALTER TABLE corrections ADD COLUMN old_high  TEXT;
ALTER TABLE corrections ADD COLUMN old_low   TEXT;
ALTER TABLE corrections ADD COLUMN old_close TEXT;
ALTER TABLE corrections ADD COLUMN new_open  TEXT NOT NULL DEFAULT '';
ALTER TABLE corrections ADD COLUMN new_high  TEXT NOT NULL DEFAULT '';
ALTER TABLE corrections ADD COLUMN new_low   TEXT NOT NULL DEFAULT '';
ALTER TABLE corrections ADD COLUMN new_close TEXT NOT NULL DEFAULT '';
`,
	},
	{
		version: 4,
		stmt: `
ALTER TABLE corrections ADD COLUMN old_volume TEXT;
ALTER TABLE corrections ADD COLUMN new_volume TEXT NOT NULL DEFAULT '';
`,
	},
}

// applyMigrations brings db forward to the latest schema version, recording
// progress in a _migrations table so restarts never re-apply a completed
// step.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("cachestore: create _migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query(`SELECT version FROM _migrations`)
	if err != nil {
		return fmt.Errorf("cachestore: read _migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("cachestore: scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("cachestore: begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("cachestore: apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("cachestore: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("cachestore: commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
