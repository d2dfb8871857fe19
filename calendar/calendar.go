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

// Package calendar derives trading session windows (RTH/ETH) for a symbol
// and date from a static holiday/DST table, emitting UTC times throughout.
package calendar

import "time"

// SessionType distinguishes regular from extended trading hours.
type SessionType string

const (
	RTH      SessionType = "RTH"
	ETHPre   SessionType = "ETH_PRE"
	ETHPost  SessionType = "ETH_POST"
)

// TimeWindow is a half-open [Start, End) UTC interval.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Session is one trading session on one day for one exchange.
type Session struct {
	Type     SessionType
	Window   TimeWindow
	Exchange string
}

// Calendar answers session queries for a set of exchanges from static
// holiday and DST tables. All emitted times are UTC, per spec.md §4.3.
type Calendar struct {
	tables map[string]exchangeTable // exchange -> table
	// symbolExchange maps a symbol to its exchange; unrecognized symbols
	// default to "XNYS" (NYSE-style RTH/ETH).
	symbolExchange map[string]string
}

// New builds a Calendar seeded with the built-in holiday/DST tables for the
// exchanges this deployment knows about (see tables.go).
func New() *Calendar {
	return &Calendar{
		tables:         builtinTables(),
		symbolExchange: map[string]string{},
	}
}

// RegisterSymbolExchange associates symbol with exchange for session lookup.
func (c *Calendar) RegisterSymbolExchange(symbol, exchange string) {
	c.symbolExchange[symbol] = exchange
}

func (c *Calendar) exchangeFor(symbol string) string {
	if ex, ok := c.symbolExchange[symbol]; ok {
		return ex
	}
	return defaultExchange
}

// SessionsFor returns the sessions in effect for symbol on date. Returns
// nil on a full closure (holiday); returns a truncated RTH session when an
// early-close rule applies for that date.
func (c *Calendar) SessionsFor(date time.Time, symbol string) []Session {
	ex := c.exchangeFor(symbol)
	table, ok := c.tables[ex]
	if !ok {
		table = c.tables[defaultExchange]
	}
	day := dateOnly(date)

	if table.isHoliday(day) {
		return nil
	}

	close := table.rthCloseFor(day)
	sessions := []Session{
		{Type: ETHPre, Window: TimeWindow{Start: table.ethPreOpen(day), End: table.rthOpen(day)}, Exchange: ex},
		{Type: RTH, Window: TimeWindow{Start: table.rthOpen(day), End: close}, Exchange: ex},
		{Type: ETHPost, Window: TimeWindow{Start: close, End: table.ethPostClose(day)}, Exchange: ex},
	}
	return sessions
}

// IsHoliday reports whether date is a full closure for symbol's exchange.
func (c *Calendar) IsHoliday(date time.Time, symbol string) bool {
	ex := c.exchangeFor(symbol)
	table, ok := c.tables[ex]
	if !ok {
		table = c.tables[defaultExchange]
	}
	return table.isHoliday(dateOnly(date))
}

// RTHWindow returns the regular-trading-hours window for symbol on date, or
// nil if the market is fully closed that day.
func (c *Calendar) RTHWindow(date time.Time, symbol string) *TimeWindow {
	ex := c.exchangeFor(symbol)
	table, ok := c.tables[ex]
	if !ok {
		table = c.tables[defaultExchange]
	}
	day := dateOnly(date)
	if table.isHoliday(day) {
		return nil
	}
	w := TimeWindow{Start: table.rthOpen(day), End: table.rthCloseFor(day)}
	return &w
}

// OutOfRange reports whether date falls outside the table's validated
// range for symbol's exchange — queries outside the range are still
// answered (best-effort) but the caller should treat the result as flagged,
// per spec.md §4.3.
func (c *Calendar) OutOfRange(date time.Time, symbol string) bool {
	ex := c.exchangeFor(symbol)
	table, ok := c.tables[ex]
	if !ok {
		table = c.tables[defaultExchange]
	}
	day := dateOnly(date)
	return day.Before(table.validFrom) || day.After(table.validTo)
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
