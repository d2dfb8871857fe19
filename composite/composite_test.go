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

package composite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider"
)

// fakeAdapter is an in-memory provider.Adapter stub for composite tests.
type fakeAdapter struct {
	caps  provider.Capabilities
	bars  []bar.Bar
	quote *provider.Quote
	err   error
}

func (f *fakeAdapter) Capabilities() provider.Capabilities { return f.caps }

func (f *fakeAdapter) GetBars(ctx context.Context, params provider.GetBarsParams) ([]bar.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []bar.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(params.From) && b.Timestamp.Before(params.To) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeAdapter) GetQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	if f.quote == nil {
		return provider.Quote{}, provider.ErrQuoteUnsupported
	}
	return *f.quote, nil
}

func oneMinBar(ts time.Time, close string) bar.Bar {
	c, _ := decimal.NewFromString(close)
	return bar.Bar{Timestamp: ts, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)}
}

func TestGetBars_CapabilityFilterSkipsUnsupportedTimeframe(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	onlyDaily := &fakeAdapter{caps: provider.Capabilities{
		Name:                   "dailyOnly",
		SupportedTimeframes:    []bar.Timeframe{bar.TF1D},
		EarliestHistoricalTime: base.Add(-365 * 24 * time.Hour),
		MaxBarsPerRequest:      1000,
	}}
	native := &fakeAdapter{
		caps: provider.Capabilities{
			Name:                   "native1m",
			SupportedTimeframes:    []bar.Timeframe{bar.TF1m},
			EarliestHistoricalTime: base.Add(-365 * 24 * time.Hour),
			MaxBarsPerRequest:      1000,
		},
		bars: []bar.Bar{oneMinBar(base, "100")},
	}
	p := New([]Entry{{Adapter: onlyDaily, Priority: 0}, {Adapter: native, Priority: 1}})

	bars, sel, err := p.GetBars(context.Background(), provider.GetBarsParams{
		Symbol: "ESH25", Timeframe: bar.TF1m, From: base, To: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if sel.ServedBy != "native1m" {
		t.Fatalf("expected native1m to serve, got %q", sel.ServedBy)
	}
	if _, ok := sel.Rejected["dailyOnly"]; !ok {
		t.Fatal("expected dailyOnly to be recorded as rejected")
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
}

func TestGetBars_HistoryFilterSkipsAdapterWithoutDepth(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	shallow := &fakeAdapter{caps: provider.Capabilities{
		Name:                   "shallow",
		SupportedTimeframes:    []bar.Timeframe{bar.TF1m},
		EarliestHistoricalTime: base.Add(time.Hour), // after 'from' below
		MaxBarsPerRequest:      1000,
	}}
	deep := &fakeAdapter{
		caps: provider.Capabilities{
			Name:                   "deep",
			SupportedTimeframes:    []bar.Timeframe{bar.TF1m},
			EarliestHistoricalTime: base.Add(-365 * 24 * time.Hour),
			MaxBarsPerRequest:      1000,
		},
		bars: []bar.Bar{oneMinBar(base, "50")},
	}
	p := New([]Entry{{Adapter: shallow, Priority: 0}, {Adapter: deep, Priority: 1}})

	_, sel, err := p.GetBars(context.Background(), provider.GetBarsParams{
		Symbol: "ESH25", Timeframe: bar.TF1m, From: base, To: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if sel.ServedBy != "deep" {
		t.Fatalf("expected deep to serve, got %q", sel.ServedBy)
	}
}

func TestGetBars_HigherPriorityAdapterTriedFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	primary := &fakeAdapter{
		caps: provider.Capabilities{Name: "primary", SupportedTimeframes: []bar.Timeframe{bar.TF1m}, MaxBarsPerRequest: 1000},
		bars: []bar.Bar{oneMinBar(base, "1")},
	}
	secondary := &fakeAdapter{
		caps: provider.Capabilities{Name: "secondary", SupportedTimeframes: []bar.Timeframe{bar.TF1m}, MaxBarsPerRequest: 1000},
		bars: []bar.Bar{oneMinBar(base, "2")},
	}
	p := New([]Entry{{Adapter: secondary, Priority: 5}, {Adapter: primary, Priority: 0}})

	bars, sel, err := p.GetBars(context.Background(), provider.GetBarsParams{
		Symbol: "ESH25", Timeframe: bar.TF1m, From: base, To: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if sel.ServedBy != "primary" || !bars[0].Close.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("expected primary (rank 0) to serve first, got %+v / %+v", sel, bars)
	}
}

func TestGetBars_AggregatesFromFinerNativeTimeframe(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var fiveMin []bar.Bar
	for i := 0; i < 2; i++ {
		fiveMin = append(fiveMin, oneMinBar(base.Add(time.Duration(i)*5*time.Minute), "100"))
	}
	adapter := &fakeAdapter{
		caps: provider.Capabilities{
			Name:                   "fiveMinOnly",
			SupportedTimeframes:    []bar.Timeframe{bar.TF5m},
			EarliestHistoricalTime: base.Add(-time.Hour),
			MaxBarsPerRequest:      1000,
		},
		bars: fiveMin,
	}
	p := New([]Entry{{Adapter: adapter, Priority: 0}})

	bars, sel, err := p.GetBars(context.Background(), provider.GetBarsParams{
		Symbol: "ESH25", Timeframe: bar.TF10m, From: base, To: base.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if sel.ServedBy != "fiveMinOnly" {
		t.Fatalf("expected fiveMinOnly to serve via aggregation, got %q", sel.ServedBy)
	}
	if len(bars) != 1 {
		t.Fatalf("expected one aggregated 10m bar, got %d", len(bars))
	}
}

func TestGetBars_NoAdapterReturnsErrorWithRejectionReasons(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	dailyOnly := &fakeAdapter{caps: provider.Capabilities{Name: "dailyOnly", SupportedTimeframes: []bar.Timeframe{bar.TF1D}}}
	p := New([]Entry{{Adapter: dailyOnly, Priority: 0}})

	_, sel, err := p.GetBars(context.Background(), provider.GetBarsParams{
		Symbol: "ESH25", Timeframe: bar.TF1m, From: base, To: base.Add(time.Minute),
	})
	if err == nil {
		t.Fatal("expected an error when no adapter can serve the request")
	}
	if len(sel.Rejected) != 1 {
		t.Fatalf("expected one rejection reason, got %d", len(sel.Rejected))
	}
}

func TestGetQuote_FallsBackToNextAdapterOnUnsupported(t *testing.T) {
	unsupported := &fakeAdapter{caps: provider.Capabilities{Name: "noquote"}}
	q := provider.Quote{Price: decimal.RequireFromString("42.5"), Timestamp: time.Now().UTC()}
	supported := &fakeAdapter{caps: provider.Capabilities{Name: "hasquote"}, quote: &q}
	p := New([]Entry{{Adapter: unsupported, Priority: 0}, {Adapter: supported, Priority: 1}})

	got, sel, err := p.GetQuote(context.Background(), "ESH25")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if sel.ServedBy != "hasquote" || !got.Price.Equal(q.Price) {
		t.Fatalf("expected hasquote to serve the quote, got %+v / %+v", sel, got)
	}
}
