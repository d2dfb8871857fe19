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

// Package sweep runs a background freshness sweep over the hot cache tier
// on a cron schedule, evicting entries the freshness policy now considers
// stale so the next read falls through to a real refresh instead of
// serving a silently aging value. Built on robfig/cron/v3, the same
// scheduler the wider example corpus's trading services use for
// background jobs.
package sweep

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
	"github.com/Nice-Wolf-Studio/TJR-sub007/freshness"
)

// Store is the subset of cachestore.Store the sweep needs; declared here
// so this package doesn't import cachestore just to depend on one method.
type Store interface {
	EvictStale(stale func(bar.CachedBar) bool) int
}

// Sweeper evicts stale hot-tier entries on a fixed schedule.
type Sweeper struct {
	cron   *cron.Cron
	store  Store
	policy freshness.Policy
}

// New builds a Sweeper. schedule is a standard five-field cron expression,
// e.g. "*/1 * * * *" for once a minute.
func New(store Store, policy freshness.Policy, schedule string) (*Sweeper, error) {
	s := &Sweeper{cron: cron.New(), store: store, policy: policy}
	if _, err := s.cron.AddFunc(schedule, func() { s.runOnce() }); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the sweep on its schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight sweep to finish and halts the schedule.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunNow executes one sweep immediately, outside the cron schedule.
func (s *Sweeper) RunNow() int {
	return s.runOnce()
}

func (s *Sweeper) runOnce() int {
	now := time.Now().UTC()
	evicted := s.store.EvictStale(func(c bar.CachedBar) bool {
		return s.policy.Stale(c, now)
	})
	if evicted > 0 {
		log.Printf("sweep: evicted %d stale hot-tier entries", evicted)
	}
	return evicted
}
