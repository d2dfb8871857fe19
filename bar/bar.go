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

package bar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample aligned to the start of a timeframe bucket.
// Timestamp is UTC, truncated to millisecond precision — idiomatic
// time.Time rather than the spec's raw epoch-ms wording, same invariant
// (Timestamp.UnixMilli() % Timeframe.Milliseconds() == 0).
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Key identifies a bar's storage slot independent of who produced it.
type Key struct {
	Symbol    string
	Timeframe Timeframe
	Timestamp time.Time
}

// CachedBar is a stored Bar plus provenance. A fixed (Symbol, Timeframe,
// Timestamp, Provider) tuple's Revision is strictly increasing across
// writes — see package merge for the rule that enforces this.
type CachedBar struct {
	Bar
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Provider  string    `json:"provider"`
	Revision  int       `json:"revision"`
	FetchedAt time.Time `json:"fetchedAt"` // UTC when this revision was observed
}

// Key returns the storage key this CachedBar occupies.
func (c CachedBar) Key() Key {
	return Key{Symbol: c.Symbol, Timeframe: c.Timeframe, Timestamp: c.Timestamp}
}

// Validate checks the OHLCV invariants from spec.md §3: low <= min(open,
// close) <= max(open, close) <= high, volume >= 0, and the timestamp sits on
// a timeframe boundary.
func (b Bar) Validate(tf Timeframe) error {
	if b.Volume.IsNegative() {
		return fmt.Errorf("bar: negative volume %s", b.Volume)
	}
	lowBound := decimal.Min(b.Open, b.Close)
	highBound := decimal.Max(b.Open, b.Close)
	if b.Low.GreaterThan(lowBound) {
		return fmt.Errorf("bar: low %s exceeds min(open,close) %s", b.Low, lowBound)
	}
	if b.High.LessThan(highBound) {
		return fmt.Errorf("bar: high %s below max(open,close) %s", b.High, highBound)
	}
	if b.Low.GreaterThan(b.High) {
		return fmt.Errorf("bar: low %s exceeds high %s", b.Low, b.High)
	}
	if tf.Valid() && !IsAligned(b.Timestamp, tf) {
		return fmt.Errorf("bar: timestamp %s is not aligned to timeframe %s", b.Timestamp, tf)
	}
	return nil
}

// Equal reports whether two bars carry the same OHLCV values — used by the
// merge engine's change detector to suppress no-op correction events.
func (b Bar) Equal(other Bar) bool {
	return b.Timestamp.Equal(other.Timestamp) &&
		b.Open.Equal(other.Open) &&
		b.High.Equal(other.High) &&
		b.Low.Equal(other.Low) &&
		b.Close.Equal(other.Close) &&
		b.Volume.Equal(other.Volume)
}
