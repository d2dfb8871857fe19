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

package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrQuoteUnsupported is returned by adapters that don't implement GetQuote.
var ErrQuoteUnsupported = errors.New("provider: quote lookup not supported by this adapter")

// RateLimitError signals a retryable rate-limit response from the
// upstream provider. RetryAfter is zero when the provider gave no hint.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s: rate limited", e.Provider)
}

// InsufficientBarsError means the adapter returned fewer bars than asked
// for and has no more available for the window — non-retryable for that
// adapter.
type InsufficientBarsError struct {
	Provider  string
	Requested int
	Returned  int
}

func (e *InsufficientBarsError) Error() string {
	return fmt.Sprintf("provider %s: insufficient bars (requested %d, got %d)", e.Provider, e.Requested, e.Returned)
}

// SymbolResolutionError means the provider could not resolve the symbol at
// all — non-retryable.
type SymbolResolutionError struct {
	Provider string
	Symbol   string
	Reason   string
}

func (e *SymbolResolutionError) Error() string {
	return fmt.Sprintf("provider %s: could not resolve symbol %q: %s", e.Provider, e.Symbol, e.Reason)
}

// TransportError wraps any other upstream failure (connection, protocol,
// decode) that isn't one of the specific kinds above. Treated the same
// as a rate limit for retry purposes.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether err represents a transient provider failure
// that is worth retrying with backoff.
func Retryable(err error) bool {
	var rl *RateLimitError
	var tr *TransportError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
