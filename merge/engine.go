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

// Package merge implements the revision engine that decides, for a pair of
// candidate bars sharing (symbol, timeframe, timestamp), which one wins and
// whether that decision produces a correction event. The same-provider
// overwrite path is modeled on fixclient.OrderStore.UpdateOrderFromExecReport
// (an update only replaces fields the new message actually carries); the
// differing-provider path generalizes that into whole-bar winner selection
// by configured priority.
package merge

import (
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

// EventType names why a winner was recorded as a correction.
type EventType string

const (
	// EventInitial fires when a bar is written for a key with nothing
	// cached yet.
	EventInitial EventType = "initial"
	// EventRevision fires when the same provider supersedes its own prior
	// revision at this key.
	EventRevision EventType = "revision"
	// EventProviderOverride fires when a higher-priority provider
	// supersedes a lower-priority provider's bar at this key.
	EventProviderOverride EventType = "provider_override"
)

// CorrectionEvent is emitted whenever an incoming bar wins against an
// existing one AND its OHLCV, provider or revision differs from the
// existing bar's — idempotent re-inserts and losing bars never produce an
// event.
type CorrectionEvent struct {
	Key       bar.Key
	Type      EventType
	Old       *bar.CachedBar // nil for EventInitial
	New       bar.CachedBar
	Occurred  time.Time
}

// PriorityFunc resolves a provider identifier to its rank; lower means
// higher priority (index 0 in providerPriority is preferred).
type PriorityFunc func(provider string) int

// Resolve applies the five-rule table from spec.md §4.6 to decide the
// winner between existing (nil if there is no cached bar at this key) and
// incoming. It returns the winning bar and, when the write should be
// surfaced as a correction, a non-nil CorrectionEvent.
//
// Determinism: priority is a total order over providers and each
// provider's own revisions are strictly monotone, so the winner is
// argmin over (priority, -revision) independent of arrival order — see
// spec.md §4.6's proof sketch.
func Resolve(existing *bar.CachedBar, incoming bar.CachedBar, priority PriorityFunc, now time.Time) (bar.CachedBar, *CorrectionEvent) {
	if existing == nil {
		return incoming, &CorrectionEvent{
			Key:      incoming.Key(),
			Type:     EventInitial,
			Old:      nil,
			New:      incoming,
			Occurred: now,
		}
	}

	if incoming.Provider == existing.Provider {
		if incoming.Revision > existing.Revision {
			return winOrSuppress(*existing, incoming, EventRevision, now)
		}
		return *existing, nil
	}

	if priority(incoming.Provider) < priority(existing.Provider) {
		return winOrSuppress(*existing, incoming, EventProviderOverride, now)
	}
	return *existing, nil
}

// winOrSuppress applies the change detector: incoming has already won the
// rule table, but if its OHLCV/provider/revision are identical to
// existing's, the event is suppressed (idempotent re-insert).
func winOrSuppress(existing, incoming bar.CachedBar, evtType EventType, now time.Time) (bar.CachedBar, *CorrectionEvent) {
	if unchanged(existing, incoming) {
		return incoming, nil
	}
	old := existing
	return incoming, &CorrectionEvent{
		Key:      incoming.Key(),
		Type:     evtType,
		Old:      &old,
		New:      incoming,
		Occurred: now,
	}
}

func unchanged(a, b bar.CachedBar) bool {
	return a.Bar.Equal(b.Bar) && a.Provider == b.Provider && a.Revision == b.Revision
}
