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

// cache-verify is an offline, read-only walk of the cold tier for a single
// (symbol, timeframe, window): bar counts, freshness under the current TTL
// policy, revision and provider histograms, and every recorded correction.
// It opens the cold store directly and never talks to a provider.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cachestore"
	"github.com/Nice-Wolf-Studio/TJR-sub007/config"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
	"github.com/Nice-Wolf-Studio/TJR-sub007/symbol"
)

// report is the JSON document emitted on stdout, shaped by spec.md §4.11.
type report struct {
	Symbol       string            `json:"symbol"`
	Timeframe    string            `json:"timeframe"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	BarCount     int               `json:"barCount"`
	FreshCount   int               `json:"freshCount"`
	StaleCount   int               `json:"staleCount"`
	Revisions    map[string]int    `json:"revisionHistogram"`
	Providers    map[string]int    `json:"providerHistogram"`
	Corrections  []correctionEntry `json:"corrections"`
}

type correctionEntry struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      string     `json:"type"`
	Old       *ohlcvSide `json:"old,omitempty"`
	New       ohlcvSide  `json:"new"`
	Occurred  time.Time  `json:"occurred"`
}

type ohlcvSide struct {
	Provider string `json:"provider"`
	Revision int    `json:"revision"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		rawSymbol = flag.String("symbol", "", "ticker or futures root to verify, e.g. ESH25")
		rawTf     = flag.String("timeframe", "1m", "timeframe to verify, e.g. 1m, 5m, 1h")
		window    = flag.Int("window", 100, "number of timeframe periods to look back from now")
		coldPath  = flag.String("cold-store", "", "path to the SQLite cold store (defaults to $CACHE_COLD_STORE_PATH)")
		pretty    = flag.Bool("pretty", false, "indent the JSON output")
	)
	flag.Parse()

	if *rawSymbol == "" {
		fmt.Fprintln(os.Stderr, "cache-verify: --symbol is required")
		return 2
	}
	tf, err := bar.ParseTimeframe(*rawTf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache-verify: %v\n", err)
		return 2
	}
	canon, err := symbol.Normalize(*rawSymbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache-verify: %v\n", err)
		return 2
	}

	cfg := config.Load()
	storePath := *coldPath
	if storePath == "" {
		storePath = cfg.ColdStorePath
	}

	store, err := cachestore.Open(cachestore.Options{ColdStorePath: storePath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache-verify: cache unreachable: %v\n", err)
		return 2
	}
	defer store.Close()

	now := time.Now().UTC()
	to := bar.AlignedTimestamp(now, tf)
	from := to.Add(-time.Duration(*window) * tf.Duration())

	rep, warnings, err := buildReport(store, freshness.NewPolicy(cfg.FreshnessPolicies), canon.String(), tf, from, to, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache-verify: cache unreachable: %v\n", err)
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(os.Stderr, "cache-verify: encoding report: %v\n", err)
		return 2
	}

	if warnings {
		return 1
	}
	return 0
}

func buildReport(store *cachestore.Store, policy freshness.Policy, sym string, tf bar.Timeframe, from, to, now time.Time) (report, bool, error) {
	bars, err := store.GetRange(sym, tf, from, to)
	if err != nil {
		return report{}, false, err
	}
	corrections, err := store.ListCorrections(sym, tf, from, to)
	if err != nil {
		return report{}, false, err
	}

	rep := report{
		Symbol:      sym,
		Timeframe:   string(tf),
		From:        from,
		To:          to,
		BarCount:    len(bars),
		Revisions:   make(map[string]int),
		Providers:   make(map[string]int),
		Corrections: make([]correctionEntry, 0, len(corrections)),
	}

	for _, c := range bars {
		if policy.Stale(c, now) {
			rep.StaleCount++
		} else {
			rep.FreshCount++
		}
		rep.Revisions[fmt.Sprintf("%d", c.Revision)]++
		rep.Providers[c.Provider]++
	}

	for _, evt := range corrections {
		entry := correctionEntry{
			Timestamp: evt.Key.Timestamp,
			Type:      string(evt.Type),
			New:       sideFromCachedBar(evt.New),
			Occurred:  evt.Occurred,
		}
		if evt.Old != nil {
			side := sideFromCachedBar(*evt.Old)
			entry.Old = &side
		}
		rep.Corrections = append(rep.Corrections, entry)
	}

	warnings := rep.StaleCount > 0 || len(rep.Corrections) > 0
	return rep, warnings, nil
}

func sideFromCachedBar(c bar.CachedBar) ohlcvSide {
	return ohlcvSide{
		Provider: c.Provider,
		Revision: c.Revision,
		Open:     c.Open.String(),
		High:     c.High.String(),
		Low:      c.Low.String(),
		Close:    c.Close.String(),
		Volume:   c.Volume.String(),
	}
}
