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
	"runtime"

	"github.com/gammazero/workerpool"
)

// WorkerPool accepts units of work and runs them on some goroutine, and
// supports shutdown. It backs both TransformExecutor tasks and the
// monitor's self-resubmitted tick (the same pool interleaves both kinds of
// work).
type WorkerPool struct {
	pool   *workerpool.WorkerPool
	panics chan<- error
}

// NewWorkerPool creates a pool with n worker goroutines. n <= 0 defaults to
// runtime.GOMAXPROCS(0).
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{pool: workerpool.New(n)}
}

// WithPanicChannel arms goroutine panic recovery (see PanicRecovery) for
// every task submitted from this point on: when recovery is enabled
// (RIVERRUN_GOROUTINE_PANIC_RECOVERY=true), a panic inside a submitted task
// is recovered and reported on ch instead of taking down the worker
// goroutine; otherwise it is re-raised. Returns w for chaining at
// construction time.
func (w *WorkerPool) WithPanicChannel(ch chan<- error) *WorkerPool {
	w.panics = ch
	return w
}

// Submit runs task on some worker goroutine, guarded by PanicRecovery.
// Submit never blocks the caller waiting for the task to finish.
func (w *WorkerPool) Submit(task func()) {
	w.pool.Submit(func() { PanicRecovery(w.panics, task) })
}

// Shutdown stops accepting new work and waits for all submitted tasks to
// finish.
func (w *WorkerPool) Shutdown() {
	w.pool.StopWait()
}
