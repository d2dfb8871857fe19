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

// Package cachestore is the two-tier (hot in-memory, cold SQLite) bar
// store. Writes go through the merge engine so a losing write never
// overwrites a higher-priority or higher-revision bar already held; winning
// writes that change the bar's OHLCV, provider or revision publish a
// correction event.
package cachestore

import (
	"fmt"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/eventbus"
	"github.com/Nice-Wolf-Studio/TJR-sub007/merge"
)

// CorrectionTopic is the only topic the cache store publishes to.
const CorrectionTopic = "correction"

// Options configures a Store.
type Options struct {
	// ColdStorePath is the SQLite file path (or ":memory:"/DSN string).
	ColdStorePath string
	// HotCacheCapacity bounds the in-memory LRU tier; 0 uses the default.
	HotCacheCapacity int
	// Priority ranks providers for the merge engine; lower wins ties.
	Priority merge.PriorityFunc
	// Bus receives correction events. A nil Bus disables publishing.
	Bus *eventbus.Bus
}

// Store is the read-through, revision-aware bar cache: Get/GetRange serve
// from the hot tier, falling back to cold storage and populating the hot
// tier on the way out; Put/PutMany run every incoming bar through the merge
// engine before it is allowed to land.
type Store struct {
	hot      *hotTier
	cold     *coldStore
	priority merge.PriorityFunc
	bus      *eventbus.Bus
}

// Open builds a Store backed by a SQLite file at opts.ColdStorePath and an
// LRU hot tier sized opts.HotCacheCapacity.
func Open(opts Options) (*Store, error) {
	if opts.ColdStorePath == "" {
		return nil, fmt.Errorf("cachestore: ColdStorePath is required")
	}
	cold, err := newColdStore(opts.ColdStorePath)
	if err != nil {
		return nil, err
	}
	hot, err := newHotTier(opts.HotCacheCapacity)
	if err != nil {
		_ = cold.Close()
		return nil, err
	}
	priority := opts.Priority
	if priority == nil {
		priority = func(string) int { return 0 }
	}
	return &Store{hot: hot, cold: cold, priority: priority, bus: opts.Bus}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	return s.cold.Close()
}

// Get returns the cached bar for key, checking the hot tier first and
// falling back to cold storage. A cold hit is promoted into the hot tier.
func (s *Store) Get(key bar.Key) (bar.CachedBar, bool, error) {
	if c, ok := s.hot.get(key); ok {
		return c, true, nil
	}
	c, ok, err := s.cold.get(key)
	if err != nil {
		return bar.CachedBar{}, false, err
	}
	if ok {
		s.hot.put(c)
	}
	return c, ok, nil
}

// GetRange returns every cached bar for symbol/timeframe within [from, to],
// always served from cold storage since the hot tier has no efficient range
// scan; each bar returned is promoted into the hot tier.
func (s *Store) GetRange(symbol string, tf bar.Timeframe, from, to time.Time) ([]bar.CachedBar, error) {
	bars, err := s.cold.getRange(symbol, tf, from, to)
	if err != nil {
		return nil, err
	}
	for _, c := range bars {
		s.hot.put(c)
	}
	return bars, nil
}

// Put runs incoming through the merge engine against whatever is currently
// cached at its key, persists the winner to both tiers, and publishes a
// correction event when the write changed anything. The returned
// *merge.CorrectionEvent is nil when incoming lost the merge or was an
// idempotent re-insert.
func (s *Store) Put(incoming bar.CachedBar, now time.Time) (bar.CachedBar, *merge.CorrectionEvent, error) {
	key := incoming.Key()

	existing, found, err := s.Get(key)
	if err != nil {
		return bar.CachedBar{}, nil, err
	}
	var existingPtr *bar.CachedBar
	if found {
		existingPtr = &existing
	}

	winner, evt := merge.Resolve(existingPtr, incoming, s.priority, now)

	if existingPtr == nil || !existingPtr.Equal(winner.Bar) || existingPtr.Provider != winner.Provider || existingPtr.Revision != winner.Revision {
		if err := s.cold.put(winner); err != nil {
			return bar.CachedBar{}, nil, err
		}
		s.hot.put(winner)
	}

	if evt != nil {
		if err := s.cold.recordCorrection(*evt); err != nil {
			return bar.CachedBar{}, nil, err
		}
		if s.bus != nil {
			s.bus.Publish(CorrectionTopic, *evt)
		}
	}
	return winner, evt, nil
}

// PutMany applies Put to each bar in order, short-circuiting on the first
// error, and returns every correction event the batch produced.
func (s *Store) PutMany(incoming []bar.CachedBar, now time.Time) ([]merge.CorrectionEvent, error) {
	var events []merge.CorrectionEvent
	for _, c := range incoming {
		_, evt, err := s.Put(c, now)
		if err != nil {
			return events, err
		}
		if evt != nil {
			events = append(events, *evt)
		}
	}
	return events, nil
}

// ListCorrections returns the recorded correction events for symbol/timeframe
// within [from, to], inclusive, ordered by bar timestamp and then by the
// order they were recorded. It backs the C11
// verification tool's correction report.
func (s *Store) ListCorrections(symbol string, tf bar.Timeframe, from, to time.Time) ([]merge.CorrectionEvent, error) {
	return s.cold.getCorrections(symbol, tf, from, to)
}

// EvictStale removes every hot-tier entry the given predicate flags as
// stale. It never touches cold storage — eviction only affects what is held
// in memory, and a future Get simply re-promotes from cold.
func (s *Store) EvictStale(stale func(bar.CachedBar) bool) int {
	evicted := 0
	for _, key := range s.hot.keys() {
		c, ok := s.hot.get(key)
		if !ok {
			continue
		}
		if stale(c) {
			s.hot.remove(key)
			evicted++
		}
	}
	return evicted
}
