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

// Package freshness implements the TTL-based staleness predicate for
// cached bars: a local, I/O-free check evaluated against a clock.
package freshness

import (
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

// historicalCutoff is the age beyond which a bar is considered finalized
// and therefore always fresh, regardless of when it was fetched.
const historicalCutoff = 7 * 24 * time.Hour

// defaultTTL applies to any timeframe not present in a Policy's overrides
// (and to an empty/unrecognized timeframe string).
const defaultTTL = 10 * time.Minute

// defaultTTLs is the per-timeframe TTL table from spec.md §4.5.
var defaultTTLs = map[bar.Timeframe]time.Duration{
	bar.TF1m:  5 * time.Minute,
	bar.TF5m:  15 * time.Minute,
	bar.TF10m: 20 * time.Minute,
	bar.TF15m: 30 * time.Minute,
	bar.TF30m: 60 * time.Minute,
	bar.TF1h:  2 * time.Hour,
	bar.TF2h:  4 * time.Hour,
	bar.TF4h:  6 * time.Hour,
	bar.TF1D:  24 * time.Hour,
}

// Policy holds the effective TTL table: defaults overridden per timeframe.
type Policy struct {
	overrides map[bar.Timeframe]time.Duration
}

// NewPolicy builds a Policy from the spec.md defaults, with overrides
// applied on top. A nil or empty overrides map yields the default table
// unchanged.
func NewPolicy(overrides map[bar.Timeframe]time.Duration) Policy {
	merged := make(map[bar.Timeframe]time.Duration, len(defaultTTLs))
	for tf, ttl := range defaultTTLs {
		merged[tf] = ttl
	}
	for tf, ttl := range overrides {
		merged[tf] = ttl
	}
	return Policy{overrides: merged}
}

// TTL returns the freshness window for tf, falling back to the 10-minute
// default for any timeframe the policy has no entry for.
func (p Policy) TTL(tf bar.Timeframe) time.Duration {
	if ttl, ok := p.overrides[tf]; ok {
		return ttl
	}
	return defaultTTL
}

// Stale evaluates the staleness rule from spec.md §4.5 for a cached bar at
// now: bars more than 7 days old are always considered fresh (historical
// data is finalized); otherwise a bar is stale once its fetch age exceeds
// the timeframe's TTL. This is a pure local predicate — no I/O.
func (p Policy) Stale(cached bar.CachedBar, now time.Time) bool {
	if now.Sub(cached.Timestamp) > historicalCutoff {
		return false
	}
	return now.Sub(cached.FetchedAt) > p.TTL(cached.Timeframe)
}
