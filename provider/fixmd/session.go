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
	"fmt"
	"io"

	"github.com/quickfixgo/quickfix"
)

// session wraps the quickfix.Initiator and the Application behind it for
// one running FIX connection.
type session struct {
	initiator *quickfix.Initiator
	app       *app
}

// newSession parses settings (quickfix.toml-style session configuration)
// and starts an Initiator bound to a, matching the bootstrap every
// quickfixgo-based client performs: ParseSettings, a file store, a file
// logger, then NewInitiator.
func newSession(a *app, settings io.Reader) (*session, error) {
	cfg, err := quickfix.ParseSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("fixmd: parse session settings: %w", err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, err := quickfix.NewFileLogFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("fixmd: build log factory: %w", err)
	}

	initiator, err := quickfix.NewInitiator(a, storeFactory, cfg, logFactory)
	if err != nil {
		return nil, fmt.Errorf("fixmd: build initiator: %w", err)
	}

	return &session{initiator: initiator, app: a}, nil
}

func (s *session) start() error {
	return s.initiator.Start()
}

func (s *session) stop() {
	s.initiator.Stop()
}
