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

// Package utils holds small helpers shared across the FIX client and
// message builder: field extraction, request signing, and version info.
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/quickfixgo/quickfix"
)

// GetString returns the string value of tag on msg, or "" if the tag is
// absent. Looks in the body first, then the header, matching the way
// quickfix.FieldMap.GetField resolves across the two.
func GetString(msg *quickfix.Message, tag quickfix.Tag) string {
	var field quickfix.FIXString
	if err := msg.Body.GetField(tag, &field); err == nil {
		return string(field)
	}
	if err := msg.Header.GetField(tag, &field); err == nil {
		return string(field)
	}
	return ""
}

// Sign computes the Coinbase Prime FIX logon signature: HMAC-SHA256 over
// the pipe-delimited prehash string, base64-encoded.
func Sign(ts, msgType, seqNum, apiKey, targetCompId, passphrase, apiSecret string) string {
	prehash := strings.Join([]string{ts, msgType, seqNum, apiKey, targetCompId, passphrase}, "|")
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
