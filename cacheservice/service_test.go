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

package cacheservice

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cachestore"
	"github.com/Nice-Wolf-Studio/TJR-sub007/composite"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider"
)

func TestExpectedGrid_AlignsToTimeframeBoundaries(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC) // 30s past the minute
	grid := expectedGrid(base, base.Add(3*time.Minute), bar.TF1m)
	if len(grid) != 3 {
		t.Fatalf("expected 3 aligned timestamps, got %d: %v", len(grid), grid)
	}
	if grid[0].Second() != 0 || grid[0].Before(base) {
		t.Fatalf("expected first grid point aligned and not before from, got %v", grid[0])
	}
}

func TestCoalesce_GroupsContiguousTimestampsIntoOneRange(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}
	ranges := coalesce(ts, bar.TF1m)
	if len(ranges) != 1 {
		t.Fatalf("expected one contiguous range, got %d", len(ranges))
	}
	if !ranges[0].from.Equal(base) || !ranges[0].to.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("unexpected range bounds: %+v", ranges[0])
	}
}

func TestCoalesce_SplitsOnAGap(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := []time.Time{base, base.Add(time.Minute), base.Add(5 * time.Minute)}
	ranges := coalesce(ts, bar.TF1m)
	if len(ranges) != 2 {
		t.Fatalf("expected two ranges split by the gap, got %d: %+v", len(ranges), ranges)
	}
}

// fakeAdapter is a minimal provider.Adapter stub.
type fakeAdapter struct {
	name  string
	calls atomic.Int32
	bars  []bar.Bar
}

func (f *fakeAdapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Name:                   f.name,
		SupportedTimeframes:    []bar.Timeframe{bar.TF1m},
		EarliestHistoricalTime: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxBarsPerRequest:      1000,
	}
}

func (f *fakeAdapter) GetBars(ctx context.Context, params provider.GetBarsParams) ([]bar.Bar, error) {
	f.calls.Add(1)
	var out []bar.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(params.From) && b.Timestamp.Before(params.To) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeAdapter) GetQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	return provider.Quote{}, provider.ErrQuoteUnsupported
}

func oneMinBar(ts time.Time, close string) bar.Bar {
	c, _ := decimal.NewFromString(close)
	return bar.Bar{Timestamp: ts, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)}
}

func newTestService(t *testing.T, adapter *fakeAdapter) *Service {
	t.Helper()
	store, err := cachestore.Open(cachestore.Options{
		ColdStorePath:    filepath.Join(t.TempDir(), "cache.db"),
		HotCacheCapacity: 1000,
	})
	if err != nil {
		t.Fatalf("cachestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	comp := composite.New([]composite.Entry{{Adapter: adapter, Priority: 0}})
	return New(Options{Store: store, Composite: comp, Freshness: freshness.NewPolicy(nil)})
}

func TestQuery_MissingRangeFetchesFromProviderAndFillsStore(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{name: "databento", bars: []bar.Bar{
		oneMinBar(base, "100"),
		oneMinBar(base.Add(time.Minute), "101"),
		oneMinBar(base.Add(2*time.Minute), "102"),
	}}
	s := newTestService(t, adapter)

	result, err := s.Query(context.Background(), "ESH25", bar.TF1m, base, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(result.Bars))
	}
	if result.Partial {
		t.Fatal("expected a full result")
	}
	if adapter.calls.Load() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", adapter.calls.Load())
	}
}

func TestQuery_SecondCallWithinTTLMakesNoProviderCall(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{name: "databento", bars: []bar.Bar{oneMinBar(base, "100")}}
	s := newTestService(t, adapter)

	if _, err := s.Query(context.Background(), "ESH25", bar.TF1m, base, base); err != nil {
		t.Fatalf("first Query: %v", err)
	}
	if _, err := s.Query(context.Background(), "ESH25", bar.TF1m, base, base); err != nil {
		t.Fatalf("second Query: %v", err)
	}
	if adapter.calls.Load() != 1 {
		t.Fatalf("expected the second call to be served entirely from cache, got %d provider calls", adapter.calls.Load())
	}
}

func TestQuery_NormalizesSymbolBeforeQuerying(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{name: "databento", bars: []bar.Bar{oneMinBar(base, "100")}}
	s := newTestService(t, adapter)

	result, err := s.Query(context.Background(), "  esh25 ", bar.TF1m, base, base)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Bars) != 1 || result.Bars[0].Symbol != "ESH25" {
		t.Fatalf("expected normalized symbol ESH25, got %+v", result.Bars)
	}
}
