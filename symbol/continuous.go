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

package symbol

import (
	"fmt"
	"time"
)

// ExpiryAnchor names how a contract's expiration day is derived for a
// given root.
type ExpiryAnchor string

const (
	AnchorThirdFriday           ExpiryAnchor = "third-friday"
	AnchorWedBeforeThirdFriday  ExpiryAnchor = "wednesday-before-third-friday"
	AnchorExplicitDay           ExpiryAnchor = "explicit-day"
)

// RolloverRule configures how a continuous root resolves to a front-month
// contract. Both VolumeThreshold and DaysBeforeExpiry may be set:
// VolumeThreshold is attempted first and the resolver falls back to
// DaysBeforeExpiry when volume data is unavailable.
type RolloverRule struct {
	Root             string
	Anchor           ExpiryAnchor
	ExplicitDay      int // day-of-month, only used when Anchor == AnchorExplicitDay
	VolumeThreshold  float64 // front month rolls once the next month's volume exceeds this ratio
	DaysBeforeExpiry int     // roll this many days before expiry if volume data is unavailable
}

// VolumeLookup supplies recent volume for a specific contract, used for the
// volume-threshold rollover rule. Returns ok=false when no data is available
// for the contract, triggering the days-before-expiry fallback.
type VolumeLookup func(contract string) (volume float64, ok bool)

// ResolveContract picks the front-month contract for root as of asOf,
// given rule and (optionally) a volume lookup. When lookup is nil or
// returns ok=false for every candidate contract, the resolver falls back
// to the fixed days-before-expiry rule.
func ResolveContract(root string, asOf time.Time, rule RolloverRule, lookup VolumeLookup) (Canonical, error) {
	if rule.Root != root {
		return Canonical{}, fmt.Errorf("symbol: rollover rule is for root %q, not %q", rule.Root, root)
	}

	candidates := candidateContracts(root, asOf)
	if len(candidates) == 0 {
		return Canonical{}, fmt.Errorf("symbol: no candidate contracts found for root %q as of %v", root, asOf)
	}

	if lookup != nil && rule.VolumeThreshold > 0 {
		if c, ok := resolveByVolume(candidates, rule, lookup); ok {
			return c, nil
		}
	}

	return resolveByDaysBeforeExpiry(candidates, asOf, rule)
}

// candidateContracts returns the current and next two quarterly-ish
// contract months for root, nearest first. A real deployment would drive
// this off an exchange contract-month calendar; this built-in table covers
// the standard quarterly cycle (H, M, U, Z) used by the registered roots.
func candidateContracts(root string, asOf time.Time) []Canonical {
	quarterly := []byte{'H', 'M', 'U', 'Z'}
	year := asOf.Year()

	var out []Canonical
	for i := 0; i < 3; i++ {
		idx := (quarterMonthIndex(asOf.Month()) + i) % 4
		y := year
		if quarterMonthIndex(asOf.Month())+i >= 4 {
			y++
		}
		month := quarterly[idx]
		out = append(out, Canonical{
			Raw:           fmt.Sprintf("%s%c%02d", root, month, y%100),
			Root:          root,
			ContractMonth: month,
			ContractYear:  y % 100,
		})
	}
	return out
}

func quarterMonthIndex(m time.Month) int {
	switch {
	case m <= 3:
		return 0
	case m <= 6:
		return 1
	case m <= 9:
		return 2
	default:
		return 3
	}
}

func resolveByVolume(candidates []Canonical, rule RolloverRule, lookup VolumeLookup) (Canonical, bool) {
	front := candidates[0]
	frontVol, frontOK := lookup(front.Raw)
	if !frontOK {
		return Canonical{}, false
	}
	for _, next := range candidates[1:] {
		nextVol, ok := lookup(next.Raw)
		if !ok {
			continue
		}
		if frontVol == 0 || nextVol/frontVol >= rule.VolumeThreshold {
			front = next
			frontVol = nextVol
			continue
		}
		break
	}
	return front, true
}

func resolveByDaysBeforeExpiry(candidates []Canonical, asOf time.Time, rule RolloverRule) (Canonical, error) {
	for _, c := range candidates {
		expiry, err := ExpiryDate(c, rule)
		if err != nil {
			return Canonical{}, err
		}
		rollDate := expiry.AddDate(0, 0, -rule.DaysBeforeExpiry)
		if asOf.Before(rollDate) {
			return c, nil
		}
	}
	// Every candidate has already rolled; return the furthest-out one.
	return candidates[len(candidates)-1], nil
}

// ExpiryDate computes the expiration date for a resolved contract under the
// given rule's anchor.
func ExpiryDate(c Canonical, rule RolloverRule) (time.Time, error) {
	year := 2000 + c.ContractYear
	month := monthCodes[c.ContractMonth]
	if month == 0 {
		return time.Time{}, fmt.Errorf("symbol: unrecognized contract month code %q", c.ContractMonth)
	}

	switch rule.Anchor {
	case AnchorThirdFriday:
		return thirdFriday(year, month), nil
	case AnchorWedBeforeThirdFriday:
		return thirdFriday(year, month).AddDate(0, 0, -2), nil
	case AnchorExplicitDay:
		if rule.ExplicitDay <= 0 {
			return time.Time{}, fmt.Errorf("symbol: explicit-day anchor requires ExplicitDay > 0")
		}
		return time.Date(year, time.Month(month), rule.ExplicitDay, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("symbol: unrecognized expiry anchor %q", rule.Anchor)
	}
}

// thirdFriday returns the third Friday of the given month/year, UTC midnight.
func thirdFriday(year, month int) time.Time {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	firstFriday := first.AddDate(0, 0, offset)
	return firstFriday.AddDate(0, 0, 14)
}
