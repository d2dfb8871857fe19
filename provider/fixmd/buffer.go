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

// barBuffer is a fixed-capacity ring buffer of recently assembled bars for
// one symbol, ported from fixclient.TradeStore's ring buffer: O(1)
// insertion, zero allocations on eviction, pre-allocated backing array.
package fixmd

import (
	"sync"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

type barBuffer struct {
	mu    sync.RWMutex
	bars  []bar.Bar
	head  int
	count int
	size  int
}

func newBarBuffer(size int) *barBuffer {
	return &barBuffer{
		bars: make([]bar.Bar, size),
		size: size,
	}
}

// push inserts a completed bar, overwriting the oldest entry once full.
func (b *barBuffer) push(newBar bar.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeIdx := (b.head + b.count) % b.size
	b.bars[writeIdx] = newBar
	if b.count < b.size {
		b.count++
	} else {
		b.head = (b.head + 1) % b.size
	}
}

// recent returns up to limit of the newest bars, oldest first.
func (b *barBuffer) recent(limit int) []bar.Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}
	n := limit
	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		idx := (b.head + b.count - n + i) % b.size
		out[i] = b.bars[idx]
	}
	return out
}

// newest returns the most recently pushed bar, if any.
func (b *barBuffer) newest() (bar.Bar, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return bar.Bar{}, false
	}
	idx := (b.head + b.count - 1) % b.size
	return b.bars[idx], true
}

// inRange returns buffered bars with Timestamp in [from, to], ascending.
func (b *barBuffer) inRange(from, to int64) []bar.Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []bar.Bar
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % b.size
		ms := b.bars[idx].Timestamp.UnixMilli()
		if ms >= from && ms <= to {
			out = append(out, b.bars[idx])
		}
	}
	return out
}
