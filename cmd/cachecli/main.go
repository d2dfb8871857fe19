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

// cache-cli is an interactive REPL over a live cache service: it starts a
// FIX market-data session as the sole composite provider, opens the
// two-tier store, and lets an operator issue query/quote/subscribe/status
// commands against it without writing code. The command loop is the same
// readline.NewEx + PrefixCompleter shape the corpus's FIX REPL uses,
// repurposed from order entry to cache inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cacheservice"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cacheservice/sweep"
	"github.com/Nice-Wolf-Studio/TJR-sub007/cachestore"
	"github.com/Nice-Wolf-Studio/TJR-sub007/composite"
	"github.com/Nice-Wolf-Studio/TJR-sub007/config"
	"github.com/Nice-Wolf-Studio/TJR-sub007/eventbus"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
	"github.com/Nice-Wolf-Studio/TJR-sub007/merge"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider/fixmd"
)

// printCorrections gates the correction listener; the REPL's subscribe
// command toggles it.
var printCorrections atomic.Bool

func main() {
	var (
		settingsPath = flag.String("settings", "fixmd.cfg", "quickfix session settings file")
		providerName = flag.String("provider", "databento", "identifier this feed reports as to the merge engine")
		tfFlag       = flag.String("timeframe", "1m", "native timeframe the FIX feed publishes bars at")
		apiKey       = flag.String("api-key", os.Getenv("FIXMD_API_KEY"), "FIX API key")
		apiSecret    = flag.String("api-secret", os.Getenv("FIXMD_API_SECRET"), "FIX API secret")
		passphrase   = flag.String("passphrase", os.Getenv("FIXMD_PASSPHRASE"), "FIX API passphrase")
		senderCompID = flag.String("sender-comp-id", os.Getenv("FIXMD_SENDER_COMP_ID"), "FIX SenderCompID")
		targetCompID = flag.String("target-comp-id", os.Getenv("FIXMD_TARGET_COMP_ID"), "FIX TargetCompID")
		portfolioID  = flag.String("portfolio-id", os.Getenv("FIXMD_PORTFOLIO_ID"), "FIX portfolio/account ID")
	)
	flag.Parse()

	tf, err := bar.ParseTimeframe(*tfFlag)
	if err != nil {
		log.Fatalf("cache-cli: %v", err)
	}

	settingsFile, err := os.Open(*settingsPath)
	if err != nil {
		log.Fatalf("cache-cli: open settings file: %v", err)
	}
	defer settingsFile.Close()

	adapter, err := fixmd.NewAdapter(*providerName, &fixmd.Config{
		ApiKey:       *apiKey,
		ApiSecret:    *apiSecret,
		Passphrase:   *passphrase,
		SenderCompID: *senderCompID,
		TargetCompID: *targetCompID,
		PortfolioID:  *portfolioID,
	}, tf, settingsFile)
	if err != nil {
		log.Fatalf("cache-cli: start FIX session: %v", err)
	}
	defer adapter.Close()

	cfg := config.Load()
	bus := eventbus.New()
	printCorrections.Store(true)
	bus.Subscribe(cachestore.CorrectionTopic, func(event any) {
		evt, ok := event.(merge.CorrectionEvent)
		if !ok || !printCorrections.Load() {
			return
		}
		fmt.Printf("\n[correction] %s/%s @ %s: %s (now %s rev %d)\n",
			evt.Key.Symbol, evt.Key.Timeframe, evt.Key.Timestamp.Format(time.RFC3339),
			evt.Type, evt.New.Provider, evt.New.Revision)
	})

	store, err := cachestore.Open(cachestore.Options{
		ColdStorePath:    cfg.ColdStorePath,
		HotCacheCapacity: cfg.HotCacheCapacity,
		Priority:         cfg.Priority,
		Bus:              bus,
	})
	if err != nil {
		log.Fatalf("cache-cli: open cache store: %v", err)
	}
	defer store.Close()

	comp := composite.New([]composite.Entry{{Adapter: adapter, Priority: cfg.Priority(*providerName)}})
	policy := freshness.NewPolicy(cfg.FreshnessPolicies)
	svc := cacheservice.New(cacheservice.Options{
		Store:       store,
		Composite:   comp,
		Freshness:   policy,
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
	})

	sweeper, err := sweep.New(store, policy, "@every 1m")
	if err != nil {
		log.Fatalf("cache-cli: start sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	repl(svc)
}

func repl(svc *cacheservice.Service) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("query"),
		readline.PcItem("quote"),
		readline.PcItem("subscribe"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cache> ",
		HistoryFile:     "/tmp/cachecli_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("cache-cli: failed to create readline: %v", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "query":
			handleQuery(svc, parts)
		case "quote":
			handleQuote(svc, parts)
		case "subscribe":
			printing := !printCorrections.Load()
			printCorrections.Store(printing)
			fmt.Printf("correction notifications: %v\n", printing)
		case "status":
			fmt.Println("connected; issue 'query' or 'quote' to exercise the cache")
		case "help":
			displayHelp()
		case "exit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

// handleQuery issues: query <symbol> <timeframe> <lookbackPeriods>
func handleQuery(svc *cacheservice.Service, parts []string) {
	if len(parts) < 4 {
		fmt.Println("Usage: query <symbol> <timeframe> <lookbackPeriods>")
		return
	}
	tf, err := bar.ParseTimeframe(parts[2])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n <= 0 {
		fmt.Println("Error: lookbackPeriods must be a positive integer")
		return
	}

	to := bar.AlignedTimestamp(time.Now().UTC(), tf)
	from := to.Add(-time.Duration(n) * tf.Duration())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := svc.Query(ctx, parts[1], tf, from, to)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("%d bars (partial=%v)\n", len(result.Bars), result.Partial)
	if result.Partial {
		fmt.Printf("reason: %s\n", result.Reason)
	}
	for _, b := range result.Bars {
		fmt.Printf("  %s  O=%s H=%s L=%s C=%s V=%s  %s rev%d\n",
			b.Timestamp.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close, b.Volume, b.Provider, b.Revision)
	}
}

func handleQuote(svc *cacheservice.Service, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: quote <symbol>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q, err := svc.GetQuote(ctx, parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s @ %s\n", q.Price, q.Timestamp.Format(time.RFC3339))
}

func displayHelp() {
	fmt.Print(`Commands:
  query <symbol> <timeframe> <lookbackPeriods>  - read-through query over the last N periods
  quote <symbol>                                - last-price quote via the composite provider
  subscribe                                     - toggle printing correction events
  status                                        - connection status
  help                                          - this text
  exit                                          - quit
`)
}
