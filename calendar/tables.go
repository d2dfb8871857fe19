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

package calendar

import (
	"time"

	// Embeds the IANA time zone database in the binary, so DST transitions
	// resolve the same way regardless of the host's tzdata installation —
	// this is the "static IANA rules table" spec.md §4.3 calls for.
	_ "time/tzdata"
)

const defaultExchange = "XNYS"

// exchangeTable holds the fixed RTH/ETH clock times and holiday set for one
// exchange, plus the date range the table has actually been validated for.
type exchangeTable struct {
	location   *time.Location
	rthOpenHM  [2]int // hour, minute
	rthCloseHM [2]int
	ethPreHM   [2]int
	ethPostHM  [2]int
	holidays   map[string]bool // "YYYY-MM-DD" -> full closure
	earlyClose map[string][2]int // "YYYY-MM-DD" -> truncated RTH close hour/min
	validFrom  time.Time
	validTo    time.Time
}

func builtinTables() map[string]exchangeTable {
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// time/tzdata guarantees this succeeds; a failure here means the
		// embedded database itself is broken, which is a build-time defect.
		panic("calendar: failed to load America/New_York: " + err.Error())
	}

	xnys := exchangeTable{
		location:   nyLoc,
		rthOpenHM:  [2]int{9, 30},
		rthCloseHM: [2]int{16, 0},
		ethPreHM:   [2]int{4, 0},
		ethPostHM:  [2]int{20, 0},
		holidays: map[string]bool{
			"2025-01-01": true, // New Year's Day
			"2025-01-20": true, // MLK Day
			"2025-02-17": true, // Presidents' Day
			"2025-04-18": true, // Good Friday
			"2025-05-26": true, // Memorial Day
			"2025-06-19": true, // Juneteenth
			"2025-07-04": true, // Independence Day
			"2025-09-01": true, // Labor Day
			"2025-11-27": true, // Thanksgiving
			"2025-12-25": true, // Christmas
		},
		earlyClose: map[string][2]int{
			"2025-07-03": {13, 0}, // day before Independence Day
			"2025-11-28": {13, 0}, // day after Thanksgiving
			"2025-12-24": {13, 0}, // Christmas Eve
		},
		validFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		validTo:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	return map[string]exchangeTable{
		defaultExchange: xnys,
		"XCME":          xnys, // CME day-session clock shares the XNYS table for this deployment
	}
}

func (t exchangeTable) key(day time.Time) string {
	return day.Format("2006-01-02")
}

func (t exchangeTable) isHoliday(day time.Time) bool {
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return true
	}
	return t.holidays[t.key(day)]
}

func (t exchangeTable) rthOpen(day time.Time) time.Time {
	return t.localClock(day, t.rthOpenHM)
}

func (t exchangeTable) rthCloseFor(day time.Time) time.Time {
	if hm, ok := t.earlyClose[t.key(day)]; ok {
		return t.localClock(day, hm)
	}
	return t.localClock(day, t.rthCloseHM)
}

func (t exchangeTable) ethPreOpen(day time.Time) time.Time {
	return t.localClock(day, t.ethPreHM)
}

func (t exchangeTable) ethPostClose(day time.Time) time.Time {
	return t.localClock(day, t.ethPostHM)
}

// localClock builds a wall-clock time on day in the exchange's local
// timezone and converts it to UTC, letting the IANA database resolve
// whichever DST offset applies on that date.
func (t exchangeTable) localClock(day time.Time, hm [2]int) time.Time {
	local := time.Date(day.Year(), day.Month(), day.Day(), hm[0], hm[1], 0, 0, t.location)
	return local.UTC()
}
