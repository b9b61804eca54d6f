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

type updateKind int

const (
	updateProduced updateKind = iota
	updateFailed
)

// ExecutorUpdate is the monitor's internal message: exactly one of a
// produced output bundle or a failure raised while evaluating a transform.
type ExecutorUpdate struct {
	kind      updateKind
	transform *TransformNode
	bundle    *Bundle
	err       error
}

func producedUpdate(transform *TransformNode, bundle *Bundle) ExecutorUpdate {
	return ExecutorUpdate{kind: updateProduced, transform: transform, bundle: bundle}
}

func failedUpdate(transform *TransformNode, err error) ExecutorUpdate {
	return ExecutorUpdate{kind: updateFailed, transform: transform, err: err}
}

// updateQueue is the internal update queue: multi-producer (every
// TransformExecutor's completion callback, running in a worker goroutine),
// single-consumer (the monitor). Pushes never block; pops are non-blocking.
type updateQueue struct {
	mu sync.Mutex
	dq deque.Deque[ExecutorUpdate]
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{}
}

func (q *updateQueue) push(u ExecutorUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dq.PushBack(u)
}

// tryPop removes and returns the oldest update, or reports ok == false if
// the queue is empty. Never blocks.
func (q *updateQueue) tryPop() (u ExecutorUpdate, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return ExecutorUpdate{}, false
	}
	return q.dq.PopFront(), true
}
