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
	"sync"

	"github.com/gammazero/deque"
)

// serialState is the admission state of a serialExecutorService.
type serialState int

const (
	serialIdle serialState = iota
	serialRunning
)

// serialExecutorService is the serial TransformExecutorService variant:
// one slot per instance, at most one TransformExecutor in flight, and a
// FIFO queue of everything else scheduled for the same StepAndKey. The
// FIFO order preserves per-key processing order, observable by user code
// through per-key state in the evaluation context.
//
// A failed task releases the slot exactly like a successful one; it does
// not drain the queue, since the monitor independently propagates the
// failure.
type serialExecutorService struct {
	pool      *WorkerPool
	scheduled *scheduledSet

	mu    sync.Mutex
	state serialState
	queue deque.Deque[*TransformExecutor]
}

func newSerialExecutorService(pool *WorkerPool, scheduled *scheduledSet) *serialExecutorService {
	return &serialExecutorService{pool: pool, scheduled: scheduled}
}

func (s *serialExecutorService) schedule(t *TransformExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == serialIdle {
		s.state = serialRunning
		s.submitLocked(t)
		return
	}
	s.queue.PushBack(t)
}

func (s *serialExecutorService) submitLocked(t *TransformExecutor) {
	s.scheduled.add(t)
	s.pool.Submit(t.Run)
}

func (s *serialExecutorService) onTaskComplete(t *TransformExecutor) {
	s.scheduled.remove(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		s.state = serialIdle
		return
	}
	next := s.queue.PopFront()
	s.submitLocked(next)
}
