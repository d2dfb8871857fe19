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

package cachestore

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

// defaultHotCapacity bounds the number of distinct (symbol, timeframe,
// timestamp) slots held in memory before the LRU starts evicting.
const defaultHotCapacity = 10_000

// hotTier is the in-memory read-through cache in front of the cold SQLite
// store. It is sized in bar slots, not bytes — capacity is the same
// single-number tuning knob the teacher's TradeStore ring buffer uses.
type hotTier struct {
	cache *lru.Cache[bar.Key, bar.CachedBar]
}

func newHotTier(capacity int) (*hotTier, error) {
	if capacity <= 0 {
		capacity = defaultHotCapacity
	}
	c, err := lru.New[bar.Key, bar.CachedBar](capacity)
	if err != nil {
		return nil, err
	}
	return &hotTier{cache: c}, nil
}

func (h *hotTier) get(key bar.Key) (bar.CachedBar, bool) {
	return h.cache.Get(key)
}

func (h *hotTier) put(c bar.CachedBar) {
	h.cache.Add(c.Key(), c)
}

func (h *hotTier) remove(key bar.Key) {
	h.cache.Remove(key)
}

// keys returns every key currently resident in the hot tier. Used by the
// background freshness sweep to find candidates for eviction without
// touching the cold store.
func (h *hotTier) keys() []bar.Key {
	return h.cache.Keys()
}
