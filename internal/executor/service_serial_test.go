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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopCallback struct {
	resultFn func(input *Bundle, transform *TransformNode, result EvaluationResult)
	throwFn  func(input *Bundle, transform *TransformNode, err error)
}

func (c *noopCallback) HandleResult(input *Bundle, transform *TransformNode, result EvaluationResult) {
	if c.resultFn != nil {
		c.resultFn(input, transform, result)
	}
}

func (c *noopCallback) HandleThrowable(input *Bundle, transform *TransformNode, err error) {
	if c.throwFn != nil {
		c.throwFn(input, transform, err)
	}
}

type blockingEvaluator struct {
	unblock <-chan struct{}
	onRun   func()
}

func (e *blockingEvaluator) Start(*Bundle) error { return nil }
func (e *blockingEvaluator) ProcessElement(WindowedValue) error {
	return nil
}
func (e *blockingEvaluator) Finish() (EvaluationResult, error) {
	if e.onRun != nil {
		e.onRun()
	}
	if e.unblock != nil {
		<-e.unblock
	}
	return nil, nil
}

type fakeRegistryFunc func(transform *TransformNode, input *Bundle) (Evaluator, error)

func (f fakeRegistryFunc) EvaluatorFor(transform *TransformNode, input *Bundle) (Evaluator, error) {
	return f(transform, input)
}

// TestSerialExecutorServiceOrdering checks the core ordering invariant in
// isolation: bundles scheduled for the same StepAndKey run in dispatch
// order, never concurrently.
func TestSerialExecutorServiceOrdering(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(4)
	t.Cleanup(pool.Shutdown)

	svc := newSerialExecutorService(pool, newScheduledSet())

	var mu sync.Mutex
	var order []int
	var inFlight atomic.Int32
	var maxInFlight atomic.Int32

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)

	registry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		i := input.Values()[0].Value.(int)
		return &blockingEvaluator{onRun: func() {
			cur := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)

			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}}, nil
	})

	transform := &TransformNode{ID: "t", Name: "t"}
	cb := &noopCallback{
		resultFn: func(input *Bundle, transform *TransformNode, result EvaluationResult) { wg.Done() },
		throwFn:  func(input *Bundle, transform *TransformNode, err error) { wg.Done() },
	}

	for i := 0; i < n; i++ {
		bundle := NewBundle(nil, "c", true, "k1", []WindowedValue{{Value: i}})
		exec := newTransformExecutor(registry, transform, bundle, cb)
		exec.service = svc
		svc.schedule(exec)
	}

	wg.Wait()

	require.Len(t, order, n)
	assert.Equal(t, int32(1), maxInFlight.Load(), "same-key work must never run concurrently")
	for i, v := range order {
		assert.Equal(t, i, v, "same-key work must run in dispatch order")
	}
}

// TestSerialExecutorServiceNoLeakedSlots checks that after the queue
// drains and the running task completes, the service returns to idle, and
// a subsequent schedule observes no stale work.
func TestSerialExecutorServiceNoLeakedSlots(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	t.Cleanup(pool.Shutdown)

	scheduled := newScheduledSet()
	svc := newSerialExecutorService(pool, scheduled)

	registry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	})
	transform := &TransformNode{ID: "t", Name: "t"}

	var wg sync.WaitGroup
	wg.Add(1)
	cb := &noopCallback{
		resultFn: func(*Bundle, *TransformNode, EvaluationResult) { wg.Done() },
	}
	exec := newTransformExecutor(registry, transform, NewBundle(nil, "c", true, "k", nil), cb)
	exec.service = svc
	svc.schedule(exec)
	wg.Wait()

	// Allow onTaskComplete's state transition to finish.
	deadline := time.Now().Add(time.Second)
	var state serialState
	var qlen int
	for time.Now().Before(deadline) {
		svc.mu.Lock()
		state = svc.state
		qlen = svc.queue.Len()
		svc.mu.Unlock()
		if state == serialIdle {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, serialIdle, state)
	assert.Equal(t, 0, qlen)
	assert.Equal(t, 0, scheduled.size())
}

// TestSerialExecutorServiceFailureReleasesSlot: a failed task releases the
// slot the same way a success does, and does not drain the queue.
func TestSerialExecutorServiceFailureReleasesSlot(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	t.Cleanup(pool.Shutdown)

	svc := newSerialExecutorService(pool, newScheduledSet())
	transform := &TransformNode{ID: "t", Name: "t"}

	var results []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	cb := &noopCallback{
		resultFn: func(input *Bundle, _ *TransformNode, _ EvaluationResult) {
			mu.Lock()
			results = append(results, "ok")
			mu.Unlock()
			wg.Done()
		},
		throwFn: func(input *Bundle, _ *TransformNode, _ error) {
			mu.Lock()
			results = append(results, "err")
			mu.Unlock()
			wg.Done()
		},
	}

	failingRegistry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		return nil, assertErr
	})
	okRegistry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	})

	failing := newTransformExecutor(failingRegistry, transform, NewBundle(nil, "c", true, "k", nil), cb)
	failing.service = svc
	ok := newTransformExecutor(okRegistry, transform, NewBundle(nil, "c", true, "k", nil), cb)
	ok.service = svc

	svc.schedule(failing)
	svc.schedule(ok)

	wg.Wait()
	require.Len(t, results, 2)
	assert.Equal(t, []string{"err", "ok"}, results)
}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
