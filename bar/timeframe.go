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

// Package bar defines the canonical timeframe and OHLCV bar model shared by
// every provider adapter, the cache store, and the merge engine.
package bar

import (
	"fmt"
	"time"
)

// Timeframe is one of the closed set of bar durations the cache understands.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF10m Timeframe = "10m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF2h  Timeframe = "2h"
	TF4h  Timeframe = "4h"
	TF1D  Timeframe = "1D"
)

// durations maps each timeframe to its fixed bucket length.
var durations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF10m: 10 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF2h:  2 * time.Hour,
	TF4h:  4 * time.Hour,
	TF1D:  24 * time.Hour,
}

// aggregatedOnly is the set of timeframes not every provider offers
// directly; the composite provider aggregates up to these from a finer
// native timeframe when no adapter supports them.
var aggregatedOnly = map[Timeframe]bool{
	TF10m: true,
	TF2h:  true,
	TF4h:  true,
}

// Valid reports whether tf is one of the nine supported timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := durations[tf]
	return ok
}

// Duration returns the fixed bucket length for tf. Panics on an unknown
// timeframe — callers are expected to validate with Valid first, the same
// contract the teacher's FIX tag constants assume for known message types.
func (tf Timeframe) Duration() time.Duration {
	d, ok := durations[tf]
	if !ok {
		panic(fmt.Sprintf("bar: unknown timeframe %q", tf))
	}
	return d
}

// Milliseconds is Duration in milliseconds, the unit timestamps are aligned to.
func (tf Timeframe) Milliseconds() int64 {
	return tf.Duration().Milliseconds()
}

// IsAggregatedOnly reports whether tf is one of the timeframes (10m, 2h, 4h)
// that providers commonly do not offer natively. The composite provider
// still fetches such a timeframe directly from an adapter that lists it and
// synthesizes it via aggregation only when none does.
func (tf Timeframe) IsAggregatedOnly() bool {
	return aggregatedOnly[tf]
}

// AllTimeframes returns the nine supported timeframes, coarsest last.
func AllTimeframes() []Timeframe {
	return []Timeframe{TF1m, TF5m, TF10m, TF15m, TF30m, TF1h, TF2h, TF4h, TF1D}
}

// ParseTimeframe validates and returns tf as a Timeframe, or an error if it
// is not one of the nine supported values.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("bar: unrecognized timeframe %q", s)
	}
	return tf, nil
}

// AlignedTimestamp truncates t to the start of the timeframe bucket it
// falls in, in UTC.
func AlignedTimestamp(t time.Time, tf Timeframe) time.Time {
	ms := t.UTC().UnixMilli()
	bucket := tf.Milliseconds()
	aligned := (ms / bucket) * bucket
	return time.UnixMilli(aligned).UTC()
}

// IsAligned reports whether t already sits on a timeframe bucket boundary.
func IsAligned(t time.Time, tf Timeframe) bool {
	return t.UTC().UnixMilli()%tf.Milliseconds() == 0
}
