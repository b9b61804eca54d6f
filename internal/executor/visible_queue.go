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

import "sync"

// visibleQueueCapacity is the bound on the visible update queue.
const visibleQueueCapacity = 20

// VisibleUpdate is the external monitor message exposed through
// AwaitCompletion: either done, or failed-with(err, transform?).
type VisibleUpdate struct {
	done      bool
	err       error
	transform *TransformNode
}

// Err returns the failure this update carries, or nil for a done update.
func (v VisibleUpdate) Err() error { return v.err }

// Transform returns the transform whose evaluation failed, if known.
func (v VisibleUpdate) Transform() *TransformNode { return v.transform }

// Done reports whether this update is the terminal success signal.
func (v VisibleUpdate) Done() bool { return v.done }

// visibleQueue is the bounded, single-producer (monitor), single-consumer
// (caller) queue of VisibleUpdates. When full, a new publish displaces the
// oldest non-terminal entry to make room: a "done" update is never evicted,
// and the displacement never loses the queue's sole done entry if one is
// already present.
type visibleQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []VisibleUpdate
}

func newVisibleQueue() *visibleQueue {
	q := &visibleQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// publish appends u, evicting the oldest non-done entry if the queue is
// already at capacity.
func (q *visibleQueue) publish(u VisibleUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= visibleQueueCapacity {
		evict := 0
		for i, it := range q.items {
			if !it.done {
				evict = i
				break
			}
		}
		q.items = append(q.items[:evict], q.items[evict+1:]...)
	}
	q.items = append(q.items, u)
	q.cond.Signal()
}

// receive blocks until at least one VisibleUpdate is available, then
// removes and returns the oldest one.
func (q *visibleQueue) receive() VisibleUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}
