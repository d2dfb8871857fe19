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

// Package provider defines the adapter contract every market-data backend
// implements: capabilities, bar retrieval, and an optional quote lookup.
// Adapters are stateless with respect to the core — they hold no cache.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

// Capabilities describes what an adapter can serve.
type Capabilities struct {
	Name                     string
	SupportedTimeframes      []bar.Timeframe
	EarliestHistoricalTime   time.Time
	MaxBarsPerRequest        int
}

// SupportsTimeframe reports whether tf is in the adapter's native set.
func (c Capabilities) SupportsTimeframe(tf bar.Timeframe) bool {
	for _, t := range c.SupportedTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// NearestFinerSupported returns the nearest finer timeframe the adapter
// natively supports that still evenly divides target — the coarsest
// divisor, so the caller aggregates up the fewest bars via bar.Aggregate.
// The second return value is false if no such timeframe exists.
func (c Capabilities) NearestFinerSupported(target bar.Timeframe) (bar.Timeframe, bool) {
	targetMs := target.Milliseconds()
	var best bar.Timeframe
	found := false
	for _, t := range c.SupportedTimeframes {
		ms := t.Milliseconds()
		if ms <= 0 || targetMs%ms != 0 {
			continue
		}
		if !found || ms > best.Milliseconds() {
			best = t
			found = true
		}
	}
	return best, found
}

// GetBarsParams bundles a bar request.
type GetBarsParams struct {
	Symbol    string
	Timeframe bar.Timeframe
	From      time.Time
	To        time.Time
	Limit     int // 0 means unbounded
}

// Quote is a last-trade snapshot.
type Quote struct {
	Price     decimal.Decimal
	Timestamp time.Time
}

// Adapter is the contract every market-data provider backend implements.
// Adapters MUST NOT cache; they answer each call fresh from upstream.
type Adapter interface {
	Capabilities() Capabilities
	GetBars(ctx context.Context, params GetBarsParams) ([]bar.Bar, error)
	// GetQuote is optional; adapters that don't support it return
	// ErrQuoteUnsupported.
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}
