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

package fixmd

import (
	"testing"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/constants"

	"github.com/quickfixgo/quickfix"
)

func buildSnapshotMessage(t *testing.T, entries map[string]string) *quickfix.Message {
	t.Helper()
	m := quickfix.NewMessage()
	m.Header.SetField(constants.TagMsgType, quickfix.FIXString(constants.MsgTypeMarketDataSnapshot))
	m.Body.SetField(constants.TagSymbol, quickfix.FIXString("ESH25"))
	m.Body.SetField(constants.TagNoMdEntries, quickfix.FIXString("5"))

	group := quickfix.NewRepeatingGroup(
		constants.TagNoMdEntries,
		quickfix.GroupTemplate{
			quickfix.GroupElement(constants.TagMdEntryType),
			quickfix.GroupElement(constants.TagMdEntryPx),
			quickfix.GroupElement(constants.TagMdEntrySize),
			quickfix.GroupElement(constants.TagMdEntryTime),
		},
	)
	order := []string{
		constants.MdEntryTypeOpen,
		constants.MdEntryTypeHigh,
		constants.MdEntryTypeLow,
		constants.MdEntryTypeClose,
		constants.MdEntryTypeVolume,
	}
	for _, et := range order {
		g := group.Add()
		g.SetField(constants.TagMdEntryType, quickfix.FIXString(et))
		if px, ok := entries[et+"_px"]; ok {
			g.SetField(constants.TagMdEntryPx, quickfix.FIXString(px))
		}
		if sz, ok := entries[et+"_sz"]; ok {
			g.SetField(constants.TagMdEntrySize, quickfix.FIXString(sz))
		}
		if tm, ok := entries[et+"_time"]; ok {
			g.SetField(constants.TagMdEntryTime, quickfix.FIXString(tm))
		}
	}
	m.Body.SetGroup(group)
	return m
}

func TestAssembleBar_FoldsOHLCVEntriesIntoOneBar(t *testing.T) {
	closeTime := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC).Format(constants.FixTimeFormat)
	msg := buildSnapshotMessage(t, map[string]string{
		"4_px":     "100.00",
		"7_px":     "105.00",
		"8_px":     "99.00",
		"5_px":     "102.00",
		"5_time":   closeTime,
		"B_sz":     "1500",
	})

	b, ok := assembleBar(msg, bar.TF1m, time.Now())
	if !ok {
		t.Fatal("expected assembleBar to succeed")
	}
	if b.Open.String() != "100" || b.High.String() != "105" || b.Low.String() != "99" || b.Close.String() != "102" {
		t.Fatalf("unexpected OHLC: %+v", b)
	}
	if b.Volume.String() != "1500" {
		t.Fatalf("expected volume 1500, got %s", b.Volume)
	}
}

func TestAssembleBar_MissingRequiredEntryFails(t *testing.T) {
	msg := buildSnapshotMessage(t, map[string]string{
		"4_px": "100.00",
		"7_px": "105.00",
		// low and close omitted
	})
	if _, ok := assembleBar(msg, bar.TF1m, time.Now()); ok {
		t.Fatal("expected assembleBar to fail without a complete OHLC set")
	}
}

func TestFindEntryBoundaries_MatchesCountOfEntries(t *testing.T) {
	raw := "269=0\x01270=1\x01269=4\x01270=2\x01"
	bounds := findEntryBoundaries(raw)
	if len(bounds) != 2 {
		t.Fatalf("expected 2 boundaries, got %d", len(bounds))
	}
}
