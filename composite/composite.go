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

// Package composite wraps a priority-ordered list of provider adapters
// behind a single Adapter-shaped entry point: it filters by capability and
// history depth, ranks by priority, tries each candidate in turn, chunks
// oversized requests, and aggregates up from a finer native timeframe when
// nothing supports the target directly. The ranked-rule, first-match
// selection shape is the same one the gateway routing engine in the wider
// example corpus uses for provider failover, generalized here from request
// routing to historical bar retrieval.
package composite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider"
)

// Entry pairs an adapter with its priority rank; lower Priority wins ties.
type Entry struct {
	Adapter  provider.Adapter
	Priority int
}

// Provider composes a priority-ordered set of adapters into a single
// provider.Adapter. Selection is deterministic given fixed capabilities and
// priorities.
type Provider struct {
	entries []Entry
}

// New builds a Provider from entries. A copy is kept sorted ascending by
// Priority so repeated queries don't re-sort.
func New(entries []Entry) *Provider {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Priority < ranked[j].Priority })
	return &Provider{entries: ranked}
}

// Selection records which adapter served a query and why the others were
// rejected, for the caller to surface in audit output.
type Selection struct {
	ServedBy string
	Rejected map[string]string
}

// Capabilities reports the union of every wrapped adapter's supported
// timeframes plus the earliest of their historical horizons, so a caller
// can ask the composite the same question it would ask a single adapter.
func (p *Provider) Capabilities() provider.Capabilities {
	var timeframes []bar.Timeframe
	seen := make(map[bar.Timeframe]bool)
	var earliest = p.entries[0].Adapter.Capabilities().EarliestHistoricalTime
	maxPerRequest := 0
	for _, e := range p.entries {
		caps := e.Adapter.Capabilities()
		for _, tf := range caps.SupportedTimeframes {
			if !seen[tf] {
				seen[tf] = true
				timeframes = append(timeframes, tf)
			}
		}
		if caps.EarliestHistoricalTime.Before(earliest) {
			earliest = caps.EarliestHistoricalTime
		}
		if caps.MaxBarsPerRequest > maxPerRequest {
			maxPerRequest = caps.MaxBarsPerRequest
		}
	}
	return provider.Capabilities{
		Name:                   "composite",
		SupportedTimeframes:    timeframes,
		EarliestHistoricalTime: earliest,
		MaxBarsPerRequest:      maxPerRequest,
	}
}

// GetBars implements the five-step selection algorithm from spec.md §4.10:
// capability filter, history filter, priority rank, attempt in order
// (chunking oversized requests and aggregating from a finer native
// timeframe when needed), recording which adapter served the request.
func (p *Provider) GetBars(ctx context.Context, params provider.GetBarsParams) ([]bar.Bar, Selection, error) {
	rejected := make(map[string]string)

	for _, e := range p.entries {
		caps := e.Adapter.Capabilities()
		name := caps.Name

		fetchTf, ok := nativeOrAggregatable(caps, params.Timeframe)
		if !ok {
			rejected[name] = "does not support timeframe natively or via a finer divisor"
			continue
		}
		if caps.EarliestHistoricalTime.After(params.From) {
			rejected[name] = fmt.Sprintf("earliest historical time %s is after requested from %s", caps.EarliestHistoricalTime, params.From)
			continue
		}

		bars, err := fetchChunked(ctx, e.Adapter, caps, provider.GetBarsParams{
			Symbol:    params.Symbol,
			Timeframe: fetchTf,
			From:      params.From,
			To:        params.To,
			Limit:     params.Limit,
		})
		var insufficient *provider.InsufficientBarsError
		exhausted := errors.As(err, &insufficient)
		if err != nil && !exhausted {
			rejected[name] = err.Error()
			continue
		}
		if len(bars) == 0 {
			rejected[name] = "returned no bars for the requested window"
			continue
		}

		if fetchTf != params.Timeframe {
			bars, err = bar.Aggregate(bars, fetchTf, params.Timeframe)
			if err != nil {
				rejected[name] = fmt.Sprintf("aggregation from %s failed: %s", fetchTf, err)
				continue
			}
		}

		// A usable result either meets the expected count for the requested
		// window or the adapter has explicitly declared itself exhausted; an
		// adapter that merely returned a short, non-exhausted result falls
		// through to the next one rather than being accepted outright.
		if !exhausted {
			if expected := expectedBarCount(params.From, params.To, params.Timeframe); expected > 0 && len(bars) < expected {
				rejected[name] = fmt.Sprintf("returned %d of %d expected bars for the requested window", len(bars), expected)
				continue
			}
		}

		return bars, Selection{ServedBy: name, Rejected: rejected}, nil
	}

	return nil, Selection{Rejected: rejected}, fmt.Errorf("composite: no adapter could serve %s/%s", params.Symbol, params.Timeframe)
}

// GetQuote tries each adapter in priority order and returns the first
// quote served.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (provider.Quote, Selection, error) {
	rejected := make(map[string]string)
	for _, e := range p.entries {
		name := e.Adapter.Capabilities().Name
		q, err := e.Adapter.GetQuote(ctx, symbol)
		if err != nil {
			rejected[name] = err.Error()
			continue
		}
		return q, Selection{ServedBy: name, Rejected: rejected}, nil
	}
	return provider.Quote{}, Selection{Rejected: rejected}, fmt.Errorf("composite: no adapter could quote %s", symbol)
}

// nativeOrAggregatable returns the timeframe to actually fetch at: target
// itself if natively supported, otherwise the nearest finer native divisor
// of target the adapter offers.
func nativeOrAggregatable(caps provider.Capabilities, target bar.Timeframe) (bar.Timeframe, bool) {
	if caps.SupportsTimeframe(target) {
		return target, true
	}
	return caps.NearestFinerSupported(target)
}

// expectedBarCount returns how many timeframe-aligned bars should exist
// across [from, to) — the count spec.md §4.10 step 4 compares a provider's
// result against before accepting it as usable.
func expectedBarCount(from, to time.Time, tf bar.Timeframe) int {
	step := tf.Duration()
	if step <= 0 || !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / step)
}

// fetchChunked splits [From, To] into chunks no larger than
// caps.MaxBarsPerRequest bars and concatenates the results ascending. Bars
// accumulated before a chunk fails are still returned alongside that
// chunk's error, so a caller can honor an *provider.InsufficientBarsError
// as the adapter's exhaustion signal instead of discarding partial data.
func fetchChunked(ctx context.Context, adapter provider.Adapter, caps provider.Capabilities, params provider.GetBarsParams) ([]bar.Bar, error) {
	if caps.MaxBarsPerRequest <= 0 {
		return adapter.GetBars(ctx, params)
	}

	step := time.Duration(caps.MaxBarsPerRequest) * params.Timeframe.Duration()
	var all []bar.Bar
	for from := params.From; from.Before(params.To); from = from.Add(step) {
		to := from.Add(step)
		if to.After(params.To) {
			to = params.To
		}
		chunk, err := adapter.GetBars(ctx, provider.GetBarsParams{
			Symbol:    params.Symbol,
			Timeframe: params.Timeframe,
			From:      from,
			To:        to,
			Limit:     params.Limit,
		})
		all = append(all, chunk...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
