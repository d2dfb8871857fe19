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
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/eventbus"
)

func openTestStore(t *testing.T, bus *eventbus.Bus) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(Options{
		ColdStorePath:    path,
		HotCacheCapacity: 100,
		Priority:         samplePriority("databento", "backupFeed"),
		Bus:              bus,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePriority(order ...string) func(string) int {
	rank := make(map[string]int, len(order))
	for i, p := range order {
		rank[p] = i
	}
	return func(p string) int {
		if r, ok := rank[p]; ok {
			return r
		}
		return len(order)
	}
}

func makeBar(symbol, provider string, revision int, timestamp time.Time, close string, fetchedAt time.Time) bar.CachedBar {
	c, _ := decimal.NewFromString(close)
	return bar.CachedBar{
		Bar:       bar.Bar{Timestamp: timestamp, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(10)},
		Symbol:    symbol,
		Timeframe: bar.TF1m,
		Provider:  provider,
		Revision:  revision,
		FetchedAt: fetchedAt,
	}
}

func TestStore_PutThenGetRoundTrips(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)

	in := makeBar("ESH25", "databento", 1, ts, "100.5", now)
	winner, _, err := s.Put(in, now)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !winner.Close.Equal(in.Close) {
		t.Fatalf("expected winner to match input, got %+v", winner)
	}

	got, ok, err := s.Get(in.Key())
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !got.Close.Equal(in.Close) || got.Provider != "databento" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestStore_ColdMissPromotesIntoHotTier(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)
	in := makeBar("ESH25", "databento", 1, ts, "100.5", now)
	if err := s.cold.put(in); err != nil {
		t.Fatalf("direct cold put: %v", err)
	}

	if _, ok := s.hot.get(in.Key()); ok {
		t.Fatal("expected hot tier to be empty before Get")
	}
	got, ok, err := s.Get(in.Key())
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !got.Close.Equal(in.Close) {
		t.Fatalf("unexpected bar from cold fallback: %+v", got)
	}
	if _, ok := s.hot.get(in.Key()); !ok {
		t.Fatal("expected cold hit to promote into hot tier")
	}
}

func TestStore_HigherRevisionSamePoviderOverwrites(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)

	first := makeBar("ESH25", "databento", 1, ts, "100", now)
	second := makeBar("ESH25", "databento", 2, ts, "101", now.Add(time.Minute))

	if _, _, err := s.Put(first, now); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	winner, _, err := s.Put(second, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Put second: %v", err)
	}
	if winner.Revision != 2 || !winner.Close.Equal(second.Close) {
		t.Fatalf("expected higher revision to win, got %+v", winner)
	}
}

func TestStore_LowerPriorityProviderDoesNotOverwrite(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)

	primary := makeBar("ESH25", "databento", 1, ts, "100", now)
	backup := makeBar("ESH25", "backupFeed", 1, ts, "999", now)

	if _, _, err := s.Put(primary, now); err != nil {
		t.Fatalf("Put primary: %v", err)
	}
	winner, _, err := s.Put(backup, now)
	if err != nil {
		t.Fatalf("Put backup: %v", err)
	}
	if winner.Provider != "databento" || !winner.Close.Equal(primary.Close) {
		t.Fatalf("expected higher-priority provider to retain, got %+v", winner)
	}
}

func TestStore_WinningWriteWithChangedOHLCVPublishesCorrection(t *testing.T) {
	bus := eventbus.New()
	var published []any
	bus.Subscribe(CorrectionTopic, func(event any) { published = append(published, event) })

	s := openTestStore(t, bus)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)

	if _, _, err := s.Put(makeBar("ESH25", "databento", 1, ts, "100", now), now); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("expected one correction for the initial write, got %d", len(published))
	}

	if _, _, err := s.Put(makeBar("ESH25", "databento", 2, ts, "105", now.Add(time.Minute)), now.Add(time.Minute)); err != nil {
		t.Fatalf("Put revision: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("expected a second correction for the revision bump, got %d", len(published))
	}
}

func TestStore_RevisionBumpWithSameOHLCVPublishesCorrection(t *testing.T) {
	bus := eventbus.New()
	var published []any
	bus.Subscribe(CorrectionTopic, func(event any) { published = append(published, event) })

	s := openTestStore(t, bus)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Truncate(time.Minute)

	if _, _, err := s.Put(makeBar("ESH25", "databento", 1, ts, "100", now), now); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := s.Put(makeBar("ESH25", "databento", 2, ts, "100", now.Add(time.Minute)), now.Add(time.Minute)); err != nil {
		t.Fatalf("Put same-OHLCV revision: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("expected the revision bump to publish a second correction, got %d events", len(published))
	}
}

func TestStore_GetRangeReturnsOrderedBarsAndPromotesHotTier(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := now.Truncate(time.Minute)

	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, _, err := s.Put(makeBar("ESH25", "databento", 1, ts, "100", now), now); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	bars, err := s.GetRange("ESH25", bar.TF1m, base, base.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("expected 5 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			t.Fatalf("expected strictly increasing timestamps, got %v then %v", bars[i-1].Timestamp, bars[i].Timestamp)
		}
	}
}

func TestStore_EvictStaleRemovesOnlyFlaggedHotEntries(t *testing.T) {
	s := openTestStore(t, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := makeBar("ESH25", "databento", 1, now.Truncate(time.Minute), "100", now.Add(-time.Hour))
	fresh := makeBar("NQH25", "databento", 1, now.Truncate(time.Minute), "100", now)

	if _, _, err := s.Put(stale, now); err != nil {
		t.Fatalf("Put stale: %v", err)
	}
	if _, _, err := s.Put(fresh, now); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	evicted := s.EvictStale(func(c bar.CachedBar) bool {
		return c.Symbol == "ESH25"
	})
	if evicted != 1 {
		t.Fatalf("expected exactly one eviction, got %d", evicted)
	}
	if _, ok := s.hot.get(stale.Key()); ok {
		t.Fatal("expected stale entry to be evicted from hot tier")
	}
	if _, ok := s.hot.get(fresh.Key()); !ok {
		t.Fatal("expected fresh entry to remain in hot tier")
	}
}
