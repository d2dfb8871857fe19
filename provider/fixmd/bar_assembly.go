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

// Package fixmd is a provider.Adapter backed by a FIX market-data session
// (github.com/quickfixgo/quickfix). Bar assembly is grounded on the
// teacher's single-pass tag-walking parser in fixclient/parser.go: one FIX
// market data message carries a repeating group of MdEntryType entries
// (Open/High/Low/Close/Volume/Trade) instead of a flat trade print, so a
// single message's entries fold into exactly one OHLCV bar.
//
// HOT PATH: assembleBar walks the raw FIX string once, same technique as
// the teacher's parseTradeFromSegmentFast — substring slicing, no
// allocation per field, a single time.Now() per message.
package fixmd

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/constants"
	"github.com/Nice-Wolf-Studio/TJR-sub007/utils"

	"github.com/quickfixgo/quickfix"
)

// entryField is one MdEntryType segment's extracted fields, mirroring the
// teacher's Trade struct but scoped to what bar assembly needs.
type entryField struct {
	entryType string
	price     string
	size      string
	entryTime string
}

// findEntryBoundaries locates every "269=" (MdEntryType) tag start in the
// raw FIX message. Ported verbatim from fixclient.findEntryBoundaries.
func findEntryBoundaries(rawMsg string) []int {
	count := strings.Count(rawMsg, "269=")
	if count == 0 {
		return nil
	}
	entryStarts := make([]int, 0, count)
	searchFrom := 0
	for {
		pos := strings.Index(rawMsg[searchFrom:], "269=")
		if pos == -1 {
			break
		}
		entryStarts = append(entryStarts, searchFrom+pos)
		searchFrom += pos + 4
	}
	return entryStarts
}

func entryEndPos(entryStarts []int, i, msgLen int) int {
	if i < len(entryStarts)-1 {
		return entryStarts[i+1]
	}
	return msgLen
}

// parseEntrySegment parses one MdEntryType segment in a single pass,
// same tag-walking loop as the teacher's parseTradeFromSegmentFast.
func parseEntrySegment(segment string) entryField {
	var e entryField
	pos := 0
	segLen := len(segment)
	for pos < segLen {
		eqPos := strings.IndexByte(segment[pos:], '=')
		if eqPos == -1 {
			break
		}
		eqPos += pos
		tag := segment[pos:eqPos]
		valueStart := eqPos + 1
		sohPos := strings.IndexByte(segment[valueStart:], '\x01')
		var value string
		var nextPos int
		if sohPos == -1 {
			value = segment[valueStart:]
			nextPos = segLen
		} else {
			value = segment[valueStart : valueStart+sohPos]
			nextPos = valueStart + sohPos + 1
		}
		switch tag {
		case "269":
			e.entryType = value
		case "270":
			e.price = value
		case "271":
			e.size = value
		case "273":
			e.entryTime = value
		}
		pos = nextPos
	}
	return e
}

// assembleBar folds the MdEntryType entries of one FIX market data message
// into a single Bar. Open/High/Low/Close come from entries of MdEntryType
// 4/7/8/5; Volume comes from MdEntryType B; the bar timestamp is taken from
// the Close entry's
// MdEntryTime if present, otherwise from msgTime.
func assembleBar(msg *quickfix.Message, tf bar.Timeframe, msgTime time.Time) (bar.Bar, bool) {
	rawMsg := msg.String()
	noEntries := utils.GetString(msg, constants.TagNoMdEntries)
	if noEntries == "" || noEntries == "0" {
		return bar.Bar{}, false
	}

	starts := findEntryBoundaries(rawMsg)
	if len(starts) == 0 {
		return bar.Bar{}, false
	}

	msgLen := len(rawMsg)
	var out bar.Bar
	var haveOpen, haveHigh, haveLow, haveClose bool
	ts := msgTime

	for i, start := range starts {
		end := entryEndPos(starts, i, msgLen)
		entry := parseEntrySegment(rawMsg[start:end])

		price, perr := decimal.NewFromString(entry.price)
		switch entry.entryType {
		case constants.MdEntryTypeOpen:
			if perr == nil {
				out.Open = price
				haveOpen = true
			}
		case constants.MdEntryTypeHigh:
			if perr == nil {
				out.High = price
				haveHigh = true
			}
		case constants.MdEntryTypeLow:
			if perr == nil {
				out.Low = price
				haveLow = true
			}
		case constants.MdEntryTypeClose:
			if perr == nil {
				out.Close = price
				haveClose = true
			}
			if entry.entryTime != "" {
				if parsed, err := time.Parse(constants.FixTimeFormat, entry.entryTime); err == nil {
					ts = parsed.UTC()
				}
			}
		case constants.MdEntryTypeVolume:
			if vol, verr := decimal.NewFromString(entry.size); verr == nil {
				out.Volume = vol
			}
		}
	}

	if !(haveOpen && haveHigh && haveLow && haveClose) {
		return bar.Bar{}, false
	}

	out.Timestamp = bar.AlignedTimestamp(ts, tf)
	return out, true
}

// lastTradePrice scans a message's entries for the most recent Trade
// (MdEntryType "2") print. Nothing in the package calls it: GetQuote
// serves the close of the newest buffered bar instead.
func lastTradePrice(msg *quickfix.Message) (decimal.Decimal, time.Time, bool) {
	rawMsg := msg.String()
	starts := findEntryBoundaries(rawMsg)
	msgLen := len(rawMsg)

	var price decimal.Decimal
	var ts time.Time
	found := false
	for i, start := range starts {
		end := entryEndPos(starts, i, msgLen)
		entry := parseEntrySegment(rawMsg[start:end])
		if entry.entryType != constants.MdEntryTypeTrade {
			continue
		}
		p, err := decimal.NewFromString(entry.price)
		if err != nil {
			continue
		}
		price = p
		found = true
		if entry.entryTime != "" {
			if parsed, perr := time.Parse(constants.FixTimeFormat, entry.entryTime); perr == nil {
				ts = parsed.UTC()
			}
		}
	}
	return price, ts, found
}
