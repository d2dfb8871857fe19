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
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/merge"
)

// coldStore is the durable SQLite tier. It opens WAL mode for concurrent
// readers during writes and keeps prepared statements around for the hot
// insert/query paths, the same shape as database.MarketDataDb.
type coldStore struct {
	db *sql.DB

	stmtUpsertBar      *sql.Stmt
	stmtGetBar         *sql.Stmt
	stmtGetRange       *sql.Stmt
	stmtInsertCorrect  *sql.Stmt
	stmtGetCorrections *sql.Stmt
}

func newColdStore(dbPath string) (*coldStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=2000")
	if err != nil {
		return nil, fmt.Errorf("cachestore: open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cs := &coldStore{db: db}
	if cs.stmtUpsertBar, err = db.Prepare(upsertBarQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cachestore: prepare upsert: %w", err)
	}
	if cs.stmtGetBar, err = db.Prepare(getBarQuery); err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("cachestore: prepare get: %w", err)
	}
	if cs.stmtGetRange, err = db.Prepare(getRangeQuery); err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("cachestore: prepare range: %w", err)
	}
	if cs.stmtInsertCorrect, err = db.Prepare(insertCorrectionQuery); err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("cachestore: prepare correction: %w", err)
	}
	if cs.stmtGetCorrections, err = db.Prepare(getCorrectionsQuery); err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("cachestore: prepare correction range: %w", err)
	}
	return cs, nil
}

func (cs *coldStore) Close() error {
	for _, stmt := range []*sql.Stmt{cs.stmtUpsertBar, cs.stmtGetBar, cs.stmtGetRange, cs.stmtInsertCorrect, cs.stmtGetCorrections} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return cs.db.Close()
}

const upsertBarQuery = `
INSERT INTO bars (symbol, timeframe, timestamp, provider, revision, open, high, low, close, volume, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (symbol, timeframe, timestamp) DO UPDATE SET
	provider = excluded.provider,
	revision = excluded.revision,
	open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close,
	volume = excluded.volume,
	fetched_at = excluded.fetched_at
`

const getBarQuery = `
SELECT provider, revision, open, high, low, close, volume, fetched_at
FROM bars WHERE symbol = ? AND timeframe = ? AND timestamp = ?
`

const getRangeQuery = `
SELECT timestamp, provider, revision, open, high, low, close, volume, fetched_at
FROM bars WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
ORDER BY timestamp ASC
`

const insertCorrectionQuery = `
INSERT INTO corrections (
	symbol, timeframe, timestamp, event_type,
	old_provider, old_revision, old_open, old_high, old_low, old_close, old_volume,
	new_provider, new_revision, new_open, new_high, new_low, new_close, new_volume,
	occurred_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getCorrectionsQuery = `
SELECT timestamp, event_type,
	old_provider, old_revision, old_open, old_high, old_low, old_close, old_volume,
	new_provider, new_revision, new_open, new_high, new_low, new_close, new_volume,
	occurred_at
FROM corrections WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
ORDER BY timestamp ASC, id ASC
`

// put persists one winning bar, overwriting any prior revision at that key.
func (cs *coldStore) put(c bar.CachedBar) error {
	_, err := cs.stmtUpsertBar.Exec(
		c.Symbol, string(c.Timeframe), c.Timestamp.UnixMilli(), c.Provider, c.Revision,
		c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String(),
		c.FetchedAt.UnixMilli(),
	)
	return err
}

// get loads the cached bar at key, if any.
func (cs *coldStore) get(key bar.Key) (bar.CachedBar, bool, error) {
	row := cs.stmtGetBar.QueryRow(key.Symbol, string(key.Timeframe), key.Timestamp.UnixMilli())
	c, err := scanCachedBar(row, key.Symbol, key.Timeframe, key.Timestamp)
	if err == sql.ErrNoRows {
		return bar.CachedBar{}, false, nil
	}
	if err != nil {
		return bar.CachedBar{}, false, err
	}
	return c, true, nil
}

// getRange loads every cached bar for symbol/timeframe within [from, to],
// inclusive, ordered by timestamp ascending.
func (cs *coldStore) getRange(symbol string, tf bar.Timeframe, from, to time.Time) ([]bar.CachedBar, error) {
	rows, err := cs.stmtGetRange.Query(symbol, string(tf), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bar.CachedBar
	for rows.Next() {
		var timestampMs, fetchedAtMs int64
		var provider, openS, highS, lowS, closeS, volumeS string
		var revision int
		if err := rows.Scan(&timestampMs, &provider, &revision, &openS, &highS, &lowS, &closeS, &volumeS, &fetchedAtMs); err != nil {
			return nil, err
		}
		c, err := buildCachedBar(symbol, tf, timestampMs, provider, revision, openS, highS, lowS, closeS, volumeS, fetchedAtMs)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// recordCorrection appends an audit row for a merge.CorrectionEvent. This
// table backs the C11 verification tool's correction histogram.
func (cs *coldStore) recordCorrection(evt merge.CorrectionEvent) error {
	var oldProvider, oldOpen, oldHigh, oldLow, oldClose, oldVolume any
	var oldRevision any
	if evt.Old != nil {
		oldProvider = evt.Old.Provider
		oldRevision = evt.Old.Revision
		oldOpen, oldHigh, oldLow, oldClose = evt.Old.Open.String(), evt.Old.High.String(), evt.Old.Low.String(), evt.Old.Close.String()
		oldVolume = evt.Old.Volume.String()
	}
	_, err := cs.stmtInsertCorrect.Exec(
		evt.Key.Symbol, string(evt.Key.Timeframe), evt.Key.Timestamp.UnixMilli(),
		string(evt.Type), oldProvider, oldRevision, oldOpen, oldHigh, oldLow, oldClose, oldVolume,
		evt.New.Provider, evt.New.Revision, evt.New.Open.String(), evt.New.High.String(), evt.New.Low.String(), evt.New.Close.String(), evt.New.Volume.String(),
		evt.Occurred.UnixMilli(),
	)
	return err
}

// getCorrections loads every correction audit row for symbol/timeframe
// within [from, to], inclusive, ordered by bar timestamp and then by row id
// (recording order).
func (cs *coldStore) getCorrections(symbol string, tf bar.Timeframe, from, to time.Time) ([]merge.CorrectionEvent, error) {
	rows, err := cs.stmtGetCorrections.Query(symbol, string(tf), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []merge.CorrectionEvent
	for rows.Next() {
		var timestampMs, occurredAtMs int64
		var eventType, newProvider, newOpenS, newHighS, newLowS, newCloseS, newVolumeS string
		var newRevision int
		var oldProvider, oldOpenS, oldHighS, oldLowS, oldCloseS, oldVolumeS sql.NullString
		var oldRevision sql.NullInt64
		if err := rows.Scan(
			&timestampMs, &eventType,
			&oldProvider, &oldRevision, &oldOpenS, &oldHighS, &oldLowS, &oldCloseS, &oldVolumeS,
			&newProvider, &newRevision, &newOpenS, &newHighS, &newLowS, &newCloseS, &newVolumeS,
			&occurredAtMs,
		); err != nil {
			return nil, err
		}
		key := bar.Key{Symbol: symbol, Timeframe: tf, Timestamp: time.UnixMilli(timestampMs).UTC()}

		newOpen, _ := decimal.NewFromString(newOpenS)
		newHigh, _ := decimal.NewFromString(newHighS)
		newLow, _ := decimal.NewFromString(newLowS)
		newClose, _ := decimal.NewFromString(newCloseS)
		newVolume, _ := decimal.NewFromString(newVolumeS)
		evt := merge.CorrectionEvent{
			Key:  key,
			Type: merge.EventType(eventType),
			New: bar.CachedBar{
				Symbol: symbol, Timeframe: tf, Provider: newProvider, Revision: newRevision,
				Bar: bar.Bar{Timestamp: key.Timestamp, Open: newOpen, High: newHigh, Low: newLow, Close: newClose, Volume: newVolume},
			},
			Occurred: time.UnixMilli(occurredAtMs).UTC(),
		}
		if oldProvider.Valid {
			oldOpen, _ := decimal.NewFromString(oldOpenS.String)
			oldHigh, _ := decimal.NewFromString(oldHighS.String)
			oldLow, _ := decimal.NewFromString(oldLowS.String)
			oldClose, _ := decimal.NewFromString(oldCloseS.String)
			oldVolume, _ := decimal.NewFromString(oldVolumeS.String)
			evt.Old = &bar.CachedBar{
				Symbol: symbol, Timeframe: tf, Provider: oldProvider.String, Revision: int(oldRevision.Int64),
				Bar: bar.Bar{Timestamp: key.Timestamp, Open: oldOpen, High: oldHigh, Low: oldLow, Close: oldClose, Volume: oldVolume},
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCachedBar(row rowScanner, symbol string, tf bar.Timeframe, timestamp time.Time) (bar.CachedBar, error) {
	var provider, openS, highS, lowS, closeS, volumeS string
	var revision int
	var fetchedAtMs int64
	if err := row.Scan(&provider, &revision, &openS, &highS, &lowS, &closeS, &volumeS, &fetchedAtMs); err != nil {
		return bar.CachedBar{}, err
	}
	return buildCachedBar(symbol, tf, timestamp.UnixMilli(), provider, revision, openS, highS, lowS, closeS, volumeS, fetchedAtMs)
}

func buildCachedBar(symbol string, tf bar.Timeframe, timestampMs int64, provider string, revision int, openS, highS, lowS, closeS, volumeS string, fetchedAtMs int64) (bar.CachedBar, error) {
	open, err := decimal.NewFromString(openS)
	if err != nil {
		return bar.CachedBar{}, fmt.Errorf("cachestore: parse open: %w", err)
	}
	high, err := decimal.NewFromString(highS)
	if err != nil {
		return bar.CachedBar{}, fmt.Errorf("cachestore: parse high: %w", err)
	}
	low, err := decimal.NewFromString(lowS)
	if err != nil {
		return bar.CachedBar{}, fmt.Errorf("cachestore: parse low: %w", err)
	}
	closeV, err := decimal.NewFromString(closeS)
	if err != nil {
		return bar.CachedBar{}, fmt.Errorf("cachestore: parse close: %w", err)
	}
	volume, err := decimal.NewFromString(volumeS)
	if err != nil {
		return bar.CachedBar{}, fmt.Errorf("cachestore: parse volume: %w", err)
	}
	return bar.CachedBar{
		Bar: bar.Bar{
			Timestamp: time.UnixMilli(timestampMs).UTC(),
			Open:      open, High: high, Low: low, Close: closeV, Volume: volume,
		},
		Symbol:    symbol,
		Timeframe: tf,
		Provider:  provider,
		Revision:  revision,
		FetchedAt: time.UnixMilli(fetchedAtMs).UTC(),
	}, nil
}
