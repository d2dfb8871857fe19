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

package sweep

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
)

// fakeStore records which predicate it was called with and reports a
// fixed set of hot-tier entries, a subset of which the test marks stale.
type fakeStore struct {
	entries []bar.CachedBar
}

func (f *fakeStore) EvictStale(stale func(bar.CachedBar) bool) int {
	evicted := 0
	for _, c := range f.entries {
		if stale(c) {
			evicted++
		}
	}
	return evicted
}

func makeCachedBar(symbol string, ts time.Time, fetchedAt time.Time) bar.CachedBar {
	price := decimal.NewFromInt(100)
	return bar.CachedBar{
		Bar: bar.Bar{
			Timestamp: ts,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1),
		},
		Symbol:    symbol,
		Timeframe: bar.TF1m,
		Provider:  "databento",
		Revision:  1,
		FetchedAt: fetchedAt,
	}
}

func TestSweeper_RunNowEvictsOnlyStaleEntries(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{entries: []bar.CachedBar{
		makeCachedBar("ESH25", now.Add(-1*time.Minute), now), // fresh
		makeCachedBar("ESH25", now.Add(-2*time.Minute), now.Add(-2*time.Hour)),   // stale
		makeCachedBar("NQH25", now.Add(-3*time.Minute), now.Add(-3*time.Hour)),   // stale
	}}
	policy := freshness.NewPolicy(map[bar.Timeframe]time.Duration{bar.TF1m: time.Minute})

	s, err := New(store, policy, "@every 1h")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	evicted := s.RunNow()
	if evicted != 2 {
		t.Fatalf("expected 2 stale entries evicted, got %d", evicted)
	}
}

func TestSweeper_RunNowReturnsZeroWhenNothingIsStale(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{entries: []bar.CachedBar{
		makeCachedBar("ESH25", now, now),
	}}
	policy := freshness.NewPolicy(map[bar.Timeframe]time.Duration{bar.TF1m: time.Hour})

	s, err := New(store, policy, "@every 1h")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if evicted := s.RunNow(); evicted != 0 {
		t.Fatalf("expected no evictions, got %d", evicted)
	}
}

func TestNew_RejectsInvalidCronSchedule(t *testing.T) {
	store := &fakeStore{}
	policy := freshness.NewPolicy(nil)
	if _, err := New(store, policy, "not a cron schedule"); err == nil {
		t.Fatal("expected an error for an invalid cron schedule")
	}
}
