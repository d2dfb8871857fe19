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

// Package config loads the cache service's environment-driven settings,
// the same getEnv/fallback shape the gateway config in the wider example
// corpus uses, generalized here from HTTP gateway concerns to provider
// priority, freshness overrides, and storage location.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nice-Wolf-Studio/TJR-sub007/bar"
)

// Config holds every environment-driven setting the cache service needs.
type Config struct {
	// ProviderPriority orders provider identifiers; index 0 is preferred.
	ProviderPriority []string
	// FreshnessPolicies overrides the per-timeframe TTL defaults.
	FreshnessPolicies map[bar.Timeframe]time.Duration
	// HotCacheCapacity bounds the in-memory LRU tier.
	HotCacheCapacity int
	// ColdStorePath is the SQLite file the cold tier persists to.
	ColdStorePath string
	// MaxRetries bounds retryable provider call attempts.
	MaxRetries int
	// BaseBackoff is the exponential backoff base duration.
	BaseBackoff time.Duration
}

// Load reads configuration from environment variables, falling back to
// sensible defaults for anything unset.
func Load() *Config {
	return &Config{
		ProviderPriority:  getEnvList("CACHE_PROVIDER_PRIORITY", []string{"databento", "polygon", "yahoo"}),
		FreshnessPolicies: getEnvTimeframeDurations("CACHE_FRESHNESS_OVERRIDE"),
		HotCacheCapacity:  getEnvInt("CACHE_HOT_CAPACITY", 10_000),
		ColdStorePath:     getEnv("CACHE_COLD_STORE_PATH", "marketdata_cache.db"),
		MaxRetries:        getEnvInt("CACHE_MAX_RETRIES", 3),
		BaseBackoff:       time.Duration(getEnvInt("CACHE_BASE_BACKOFF_MS", 200)) * time.Millisecond,
	}
}

// Priority builds a merge.PriorityFunc-shaped lookup from the configured
// provider order; any provider not listed ranks last.
func (c *Config) Priority(provider string) int {
	for i, p := range c.ProviderPriority {
		if p == provider {
			return i
		}
	}
	return len(c.ProviderPriority)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvList parses a comma-separated environment variable into a slice,
// trimming whitespace around each element.
func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvTimeframeDurations parses "1m=5m,5m=15m" style overrides into a
// Timeframe-keyed duration map.
func getEnvTimeframeDurations(key string) map[bar.Timeframe]time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	out := make(map[bar.Timeframe]time.Duration)
	for _, pair := range strings.Split(v, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		tf := bar.Timeframe(strings.TrimSpace(kv[0]))
		if !tf.Valid() {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		out[tf] = d
	}
	return out
}
