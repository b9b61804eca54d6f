// Copyright 2024, riverrun authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
)

// panicRecoveryEnv controls PanicRecovery: off by default, opt in for
// environments that want a failure surfaced instead of a crashed process.
const panicRecoveryEnv = "RIVERRUN_GOROUTINE_PANIC_RECOVERY"

func newPanicRecoveryGate() func() bool {
	return sync.OnceValue(func() bool {
		v, _ := strconv.ParseBool(os.Getenv(panicRecoveryEnv))
		return v
	})
}

var panicRecoveryEnabled = newPanicRecoveryGate()

// PanicRecovery runs f, recovering any panic and reporting it on panicErrs
// when recovery is enabled (RIVERRUN_GOROUTINE_PANIC_RECOVERY=true) and
// panicErrs is non-nil. When recovery is disabled, or panicErrs is nil, a
// panic in f is re-raised rather than swallowed.
func PanicRecovery(panicErrs chan<- error, f func()) {
	if !panicRecoveryEnabled() || panicErrs == nil {
		f()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			panicErrs <- fmt.Errorf("panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	f()
}
