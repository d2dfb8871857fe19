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
	"context"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/builder"
	"github.com/Nice-Wolf-Studio/TJR-sub007/constants"
	"github.com/Nice-Wolf-Studio/TJR-sub007/provider"

	"github.com/quickfixgo/quickfix"
)

// Adapter is a provider.Adapter backed by a live FIX market-data session.
// It satisfies the "adapters MUST NOT cache" rule in spirit: the ring
// buffer it keeps is the session's own incremental feed, not a
// result cache — every GetBars call re-derives its answer from what the
// session has actually received, requesting more over the wire when the
// buffer can't satisfy the window.
type Adapter struct {
	app     *app
	session *session
	name    string
	reqSeq  atomic.Int64
}

// NewAdapter starts a FIX session using settings and returns an Adapter
// bound to it. tf is the native timeframe this feed publishes bars at —
// the FIX market-data subscription used here carries one completed bar
// per message, so Adapter has exactly one native timeframe; composite
// selection (package composite) aggregates up from it via bar.Aggregate.
func NewAdapter(name string, cfg *Config, tf bar.Timeframe, settings io.Reader) (*Adapter, error) {
	a := newApp(cfg, tf)
	sess, err := newSession(a, settings)
	if err != nil {
		return nil, err
	}
	if err := sess.start(); err != nil {
		return nil, fmt.Errorf("fixmd: start session: %w", err)
	}

	select {
	case <-a.loggedOn:
	case <-time.After(10 * time.Second):
		sess.stop()
		return nil, fmt.Errorf("fixmd: logon did not complete within 10s")
	}

	return &Adapter{app: a, session: sess, name: name}, nil
}

// Close stops the underlying FIX session.
func (ad *Adapter) Close() {
	ad.session.stop()
}

// Capabilities reports the single native timeframe this feed publishes.
func (ad *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Name:                   ad.name,
		SupportedTimeframes:    []bar.Timeframe{ad.app.tf},
		EarliestHistoricalTime: time.Time{}, // streaming-only: no historical backfill
		MaxBarsPerRequest:      5000,
	}
}

func (ad *Adapter) nextReqID() string {
	return fmt.Sprintf("%s-%d", ad.name, ad.reqSeq.Add(1))
}

// GetBars asks the FIX session for bars covering [From, To]. It first
// checks the local ring buffer (bars already assembled from received messages);
// anything missing is requested via a snapshot MarketDataRequest and the
// call blocks (bounded by ctx) until that request's response arrives or
// the deadline elapses.
func (ad *Adapter) GetBars(ctx context.Context, params provider.GetBarsParams) ([]bar.Bar, error) {
	if params.Timeframe != ad.app.tf {
		return nil, &provider.InsufficientBarsError{Provider: ad.name, Requested: params.Limit, Returned: 0}
	}

	buf := ad.app.bufferFor(params.Symbol)
	fromMs := params.From.UnixMilli()
	toMs := params.To.UnixMilli()

	existing := buf.inRange(fromMs, toMs)
	if len(existing) > 0 && existing[0].Timestamp.UnixMilli() <= fromMs {
		return sortedBars(existing), nil
	}

	mdReqId := ad.nextReqID()
	waitCh := ad.app.awaitUpdate(mdReqId)

	msg := builder.BuildMarketDataRequest(
		mdReqId,
		[]string{params.Symbol},
		constants.SubscriptionRequestTypeSnapshot,
		"0",
		"", // sender/target comp IDs are filled in by the session's header defaults
		"",
		[]string{
			constants.MdEntryTypeOpen,
			constants.MdEntryTypeHigh,
			constants.MdEntryTypeLow,
			constants.MdEntryTypeClose,
			constants.MdEntryTypeVolume,
		},
	)
	if err := quickfix.SendToTarget(msg, ad.app.sessionID); err != nil {
		return nil, &provider.TransportError{Provider: ad.name, Err: err}
	}

	select {
	case <-waitCh:
	case <-ctx.Done():
		return nil, &provider.TransportError{Provider: ad.name, Err: ctx.Err()}
	}

	result := sortedBars(buf.inRange(fromMs, toMs))
	if params.Limit > 0 && len(result) < params.Limit {
		return result, &provider.InsufficientBarsError{Provider: ad.name, Requested: params.Limit, Returned: len(result)}
	}
	return result, nil
}

// GetQuote serves the most recent bar's close as a last-price quote; a
// real trade-print quote would require subscribing to MdEntryType "2"
// continuously, which this adapter does not do by default.
func (ad *Adapter) GetQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	b, ok := ad.app.bufferFor(symbol).newest()
	if !ok {
		return provider.Quote{}, &provider.SymbolResolutionError{Provider: ad.name, Symbol: symbol, Reason: "no bars received yet"}
	}
	return provider.Quote{Price: b.Close, Timestamp: b.Timestamp}, nil
}

func sortedBars(bars []bar.Bar) []bar.Bar {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars
}
