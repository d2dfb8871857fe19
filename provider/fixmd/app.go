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
	"log"
	"sync"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/builder"
	"github.com/Nice-Wolf-Studio/TJR-sub007/constants"
	"github.com/Nice-Wolf-Studio/TJR-sub007/utils"

	"github.com/quickfixgo/quickfix"
)

// Config carries the FIX session credentials, same fields as the
// teacher's fixclient.Config.
type Config struct {
	ApiKey       string
	ApiSecret    string
	Passphrase   string
	SenderCompID string
	TargetCompID string
	PortfolioID  string
}

// app is the quickfix.Application implementation behind the Adapter. It
// assembles bars from incoming market data messages (bar_assembly.go) and
// stores them in per-symbol ring buffers (buffer.go), the same
// responsibility split the teacher's FixApp/TradeStore pair has — just
// producing Bars instead of Trade prints.
type app struct {
	cfg *Config
	tf  bar.Timeframe

	mu        sync.Mutex
	sessionID quickfix.SessionID
	buffers   map[string]*barBuffer // symbol -> buffer
	waiters   map[string][]chan struct{} // mdReqId -> wake channels

	lastLogon time.Time
	loggedOn  chan struct{}
	onceLogon sync.Once
}

func newApp(cfg *Config, tf bar.Timeframe) *app {
	return &app{
		cfg:      cfg,
		tf:       tf,
		buffers:  make(map[string]*barBuffer),
		waiters:  make(map[string][]chan struct{}),
		loggedOn: make(chan struct{}),
	}
}

func (a *app) bufferFor(symbol string) *barBuffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[symbol]
	if !ok {
		b = newBarBuffer(4096)
		a.buffers[symbol] = b
	}
	return b
}

func (a *app) OnCreate(sid quickfix.SessionID) {
	a.sessionID = sid
}

func (a *app) OnLogon(sid quickfix.SessionID) {
	a.sessionID = sid
	a.lastLogon = time.Now()
	log.Printf("fixmd: logon %s", sid)
	a.onceLogon.Do(func() { close(a.loggedOn) })
}

func (a *app) OnLogout(sid quickfix.SessionID) {
	log.Printf("fixmd: logout %s", sid)
}

func (a *app) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *app) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

func (a *app) ToAdmin(msg *quickfix.Message, _ quickfix.SessionID) {
	if t, _ := msg.Header.GetString(constants.TagMsgType); t == constants.MsgTypeLogon {
		ts := time.Now().UTC().Format(constants.FixTimeFormat)
		builder.BuildLogon(&msg.Body, ts, a.cfg.ApiKey, a.cfg.ApiSecret, a.cfg.Passphrase, a.cfg.TargetCompID, a.cfg.PortfolioID)
	}
}

// FromApp routes incoming application messages. HOT PATH: one string
// comparison on MsgType, same shape as the teacher's FixApp.FromApp.
func (a *app) FromApp(msg *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(constants.TagMsgType)
	switch msgType {
	case constants.MsgTypeMarketDataSnapshot, constants.MsgTypeMarketDataIncremental:
		a.handleMarketData(msg)
	case constants.MsgTypeMarketDataReject:
		a.handleMarketDataReject(msg)
	default:
		log.Printf("fixmd: unhandled application message type %s", msgType)
	}
	return nil
}

func (a *app) handleMarketData(msg *quickfix.Message) {
	symbol := utils.GetString(msg, constants.TagSymbol)
	mdReqId := utils.GetString(msg, constants.TagMdReqId)
	if symbol == "" {
		return
	}

	now := time.Now().UTC()
	if b, ok := assembleBar(msg, a.tf, now); ok {
		a.bufferFor(symbol).push(b)
	}

	a.wake(mdReqId)
}

func (a *app) handleMarketDataReject(msg *quickfix.Message) {
	mdReqId := utils.GetString(msg, constants.TagMdReqId)
	reason := utils.GetString(msg, constants.TagMdReqRejReason)
	log.Printf("fixmd: market data request %s rejected: reason=%s", mdReqId, reason)
	a.wake(mdReqId)
}

// awaitUpdate registers a channel that receives one signal the next time a
// market data message or a market data reject tagged with mdReqId arrives,
// letting GetBars block on a live request without polling.
func (a *app) awaitUpdate(mdReqId string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	a.mu.Lock()
	a.waiters[mdReqId] = append(a.waiters[mdReqId], ch)
	a.mu.Unlock()
	return ch
}

func (a *app) wake(mdReqId string) {
	a.mu.Lock()
	chans := a.waiters[mdReqId]
	delete(a.waiters, mdReqId)
	a.mu.Unlock()
	for _, ch := range chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
