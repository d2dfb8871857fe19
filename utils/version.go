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

package utils

import "fmt"

// Version is the module version, overridable at link time with -ldflags.
var Version = "dev"

// Commit is the build commit hash, overridable at link time.
var Commit = "unknown"

// FullVersion formats Version and Commit as "version (commit)". No command
// in this module calls it; neither CLI has a --version flag.
func FullVersion() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
