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
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParallelExecutorServiceDropsFromScheduledSet checks that on
// completion notification, the task is dropped from the set of scheduled
// tasks.
func TestParallelExecutorServiceDropsFromScheduledSet(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(4)
	t.Cleanup(pool.Shutdown)

	scheduled := newScheduledSet()
	svc := newParallelExecutorService(pool, scheduled)

	registry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	})
	transform := &TransformNode{ID: "t", Name: "t"}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	cb := &noopCallback{
		resultFn: func(*Bundle, *TransformNode, EvaluationResult) { wg.Done() },
	}

	for i := 0; i < n; i++ {
		exec := newTransformExecutor(registry, transform, NewBundle(nil, "c", false, nil, nil), cb)
		exec.service = svc
		svc.schedule(exec)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return scheduled.size() == 0 }, pollTimeout, pollInterval)
}

// TestParallelExecutorServiceNoOrdering confirms the parallel variant holds
// no work back: all n tasks are admitted to the scheduled-set while every
// evaluator is still blocked.
func TestParallelExecutorServiceNoOrdering(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(8)
	t.Cleanup(pool.Shutdown)

	scheduled := newScheduledSet()
	svc := newParallelExecutorService(pool, scheduled)

	release := make(chan struct{})
	registry := fakeRegistryFunc(func(transform *TransformNode, input *Bundle) (Evaluator, error) {
		return &blockingEvaluator{unblock: release}, nil
	})
	transform := &TransformNode{ID: "t", Name: "t"}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	cb := &noopCallback{resultFn: func(*Bundle, *TransformNode, EvaluationResult) { wg.Done() }}

	for i := 0; i < n; i++ {
		exec := newTransformExecutor(registry, transform, NewBundle(nil, "c", false, nil, nil), cb)
		exec.service = svc
		svc.schedule(exec)
	}

	assert.Eventually(t, func() bool { return scheduled.size() == n }, pollTimeout, pollInterval)
	close(release)
	wg.Wait()
}
