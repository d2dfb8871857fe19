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

// Package cacheservice is the read-through entry point consumers call:
// normalize the symbol, diff the requested range against what the cache
// store holds, refresh only the stale or missing sub-ranges from the
// composite provider, merge the results in, and return the reconciled
// range. Concurrent refreshes of the same sub-range are coalesced with
// golang.org/x/sync/singleflight, the same package the rest of the
// corpus's gateway services reach for to dedupe concurrent upstream calls.
package cacheservice

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cachestore"
	"github.com/Nice-Wolf-Studio/TJR-sub007/composite"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
	"github.com/Nice-Wolf-Studio/TJR-sub007/merge"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider"
	"github.com/Nice-Wolf-Studio/TJR-sub007/symbol"
)

// Options configures a Service.
type Options struct {
	Store      *cachestore.Store
	Composite  *composite.Provider
	Freshness  freshness.Policy
	MaxRetries int           // bounded retry attempts for a retryable provider error; 0 uses the default
	BaseBackoff time.Duration // exponential backoff base; 0 uses the default
}

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 200 * time.Millisecond
)

// Service is the cache service (C9): the only thing consumers talk to.
type Service struct {
	store       *cachestore.Store
	composite   *composite.Provider
	freshness   freshness.Policy
	maxRetries  int
	baseBackoff time.Duration
	sf          singleflight.Group
}

// New builds a Service from Options.
func New(opts Options) *Service {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	return &Service{
		store:       opts.Store,
		composite:   opts.Composite,
		freshness:   opts.Freshness,
		maxRetries:  maxRetries,
		baseBackoff: backoff,
		sf:          singleflight.Group{},
	}
}

// QueryResult is the outcome of Query.
type QueryResult struct {
	Bars    []bar.CachedBar
	Partial bool   // true if any provider refresh of a sub-range failed
	Reason  string // human-readable explanation when Partial is true
}

// Query implements the nine-step read-through algorithm from spec.md §4.9.
func (s *Service) Query(ctx context.Context, rawSymbol string, tf bar.Timeframe, from, to time.Time) (QueryResult, error) {
	canon, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return QueryResult{}, fmt.Errorf("cacheservice: %w", err)
	}
	sym := canon.String()

	grid := expectedGrid(from, to, tf)
	if len(grid) == 0 {
		return QueryResult{}, nil
	}

	cached, err := s.store.GetRange(sym, tf, grid[0], grid[len(grid)-1])
	if err != nil {
		return QueryResult{}, fmt.Errorf("cacheservice: reading store: %w", err)
	}
	byTimestamp := make(map[int64]bar.CachedBar, len(cached))
	for _, c := range cached {
		byTimestamp[c.Timestamp.UnixMilli()] = c
	}

	now := time.Now().UTC()
	var needsRefresh []time.Time
	for _, ts := range grid {
		c, ok := byTimestamp[ts.UnixMilli()]
		if !ok || s.freshness.Stale(c, now) {
			needsRefresh = append(needsRefresh, ts)
		}
	}

	partial := false
	var partialReason string
	for _, subRange := range coalesce(needsRefresh, tf) {
		bars, servedBy, err := s.refresh(ctx, sym, tf, subRange.from, subRange.to)
		if err != nil {
			partial = true
			partialReason = err.Error()
			continue
		}
		if err := s.mergeIn(sym, tf, servedBy, bars, now); err != nil {
			return QueryResult{}, fmt.Errorf("cacheservice: merging refreshed bars: %w", err)
		}
	}

	final, err := s.store.GetRange(sym, tf, grid[0], grid[len(grid)-1])
	if err != nil {
		return QueryResult{}, fmt.Errorf("cacheservice: re-reading store: %w", err)
	}
	return QueryResult{Bars: final, Partial: partial, Reason: partialReason}, nil
}

// subRange is a contiguous span of the expected grid that needs refreshing.
type subRange struct {
	from, to time.Time
}

// refresh asks the composite provider for one sub-range, coalescing
// concurrent callers for the same (symbol, timeframe, sub-range) via
// singleflight and retrying retryable provider errors with exponential
// backoff bounded by s.maxRetries.
func (s *Service) refresh(ctx context.Context, sym string, tf bar.Timeframe, from, to time.Time) ([]bar.Bar, string, error) {
	key := fmt.Sprintf("%s|%s|%d|%d", sym, tf, from.UnixMilli(), to.UnixMilli())

	result, err, _ := s.sf.Do(key, func() (any, error) {
		return s.fetchWithRetry(ctx, sym, tf, from, to)
	})
	if err != nil {
		return nil, "", err
	}
	r := result.(refreshResult)
	return r.bars, r.servedBy, nil
}

// refreshResult is the value coalesced callers of refresh share through
// singleflight.
type refreshResult struct {
	bars     []bar.Bar
	servedBy string
}

func (s *Service) fetchWithRetry(ctx context.Context, sym string, tf bar.Timeframe, from, to time.Time) (refreshResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return refreshResult{}, ctx.Err()
			}
		}

		bars, sel, err := s.composite.GetBars(ctx, provider.GetBarsParams{Symbol: sym, Timeframe: tf, From: from, To: to})
		if err == nil {
			return refreshResult{bars: bars, servedBy: sel.ServedBy}, nil
		}
		lastErr = err
		if !provider.Retryable(err) {
			return refreshResult{}, err
		}
	}
	return refreshResult{}, fmt.Errorf("provider retries exhausted for %s/%s [%s,%s]: %w", sym, tf, from, to, lastErr)
}

// mergeIn runs each freshly-fetched bar through the merge engine and
// persists the winner, discarding any bar that fails its OHLC invariants
// rather than surfacing it as a correction.
func (s *Service) mergeIn(sym string, tf bar.Timeframe, servedBy string, bars []bar.Bar, now time.Time) error {
	for _, b := range bars {
		if err := b.Validate(tf); err != nil {
			log.Printf("cacheservice: discarding corrupt bar for %s/%s @ %s: %v", sym, tf, b.Timestamp, err)
			continue
		}

		existing, found, err := s.store.Get(bar.Key{Symbol: sym, Timeframe: tf, Timestamp: b.Timestamp})
		if err != nil {
			return err
		}
		revision := 1
		if found && existing.Provider == servedBy {
			revision = existing.Revision
			if !existing.Bar.Equal(b) {
				revision++
			}
		}

		incoming := bar.CachedBar{
			Bar:       b,
			Symbol:    sym,
			Timeframe: tf,
			Provider:  servedBy,
			Revision:  revision,
			FetchedAt: now,
		}
		if _, _, err := s.store.Put(incoming, now); err != nil {
			return err
		}
	}
	return nil
}

// Upsert applies the merge engine to externally-sourced bars (e.g. a
// backfill job or a consumer-supplied correction) and returns the
// correction events the writes produced.
func (s *Service) Upsert(bars []bar.CachedBar) ([]merge.CorrectionEvent, error) {
	now := time.Now().UTC()
	return s.store.PutMany(bars, now)
}

// GetQuote delegates to the composite provider.
func (s *Service) GetQuote(ctx context.Context, rawSymbol string) (provider.Quote, error) {
	canon, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("cacheservice: %w", err)
	}
	q, _, err := s.composite.GetQuote(ctx, canon.String())
	return q, err
}

// expectedGrid returns every timeframe-aligned timestamp in [from, to].
func expectedGrid(from, to time.Time, tf bar.Timeframe) []time.Time {
	start := bar.AlignedTimestamp(from, tf)
	if start.Before(from) {
		start = start.Add(tf.Duration())
	}
	var grid []time.Time
	for ts := start; !ts.After(to); ts = ts.Add(tf.Duration()) {
		grid = append(grid, ts)
	}
	return grid
}

// coalesce groups a sorted set of timestamps needing refresh into the
// smallest set of contiguous sub-ranges, per spec.md §4.9 step 5.
func coalesce(timestamps []time.Time, tf bar.Timeframe) []subRange {
	if len(timestamps) == 0 {
		return nil
	}
	step := tf.Duration()
	var ranges []subRange
	start := timestamps[0]
	prev := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Sub(prev) == step {
			prev = ts
			continue
		}
		ranges = append(ranges, subRange{from: start, to: prev.Add(step)})
		start = ts
		prev = ts
	}
	ranges = append(ranges, subRange{from: start, to: prev.Add(step)})
	return ranges
}
