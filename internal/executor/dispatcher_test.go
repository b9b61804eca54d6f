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
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestDispatcherNilBundleAlwaysParallel: a nil bundle (root injection) is
// routed through the parallel service. The dispatcher takes keyed-ness only
// from a non-nil bundle, so the consumer's collections play no part.
func TestDispatcherNilBundleAlwaysParallel(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	t.Cleanup(pool.Shutdown)
	d := newDispatcher(pool, fakeRegistryFunc(func(*TransformNode, *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	}))

	consumer := &TransformNode{ID: "root", Name: "root", Root: true}
	svc := d.serviceFor(consumer, nil)
	assert.Same(t, d.parallel, svc)
}

// TestDispatcherKeyedBundleUsesSerialAdmitter confirms the routing rule for
// non-nil keyed bundles.
func TestDispatcherKeyedBundleUsesSerialAdmitter(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	t.Cleanup(pool.Shutdown)
	d := newDispatcher(pool, fakeRegistryFunc(func(*TransformNode, *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	}))

	consumer := &TransformNode{ID: "map", Name: "map"}
	bundle := NewBundle(nil, "c", true, "k1", nil)
	svc := d.serviceFor(consumer, bundle)
	_, ok := svc.(*serialExecutorService)
	require.True(t, ok)
	assert.NotSame(t, d.parallel, svc)
}

// TestDispatcherConcurrentSameKeyDispatchConvergesOnOneAdmitter: 100
// bundles with identical StepAndKey dispatched from many goroutines must
// create exactly one serial admitter.
func TestDispatcherConcurrentSameKeyDispatchConvergesOnOneAdmitter(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(8)
	t.Cleanup(pool.Shutdown)

	var wg sync.WaitGroup
	var seen sync.Map // *serialExecutorService -> struct{}

	d := newDispatcher(pool, fakeRegistryFunc(func(*TransformNode, *Bundle) (Evaluator, error) {
		return &blockingEvaluator{}, nil
	}))
	consumer := &TransformNode{ID: "map", Name: "map"}

	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			bundle := NewBundle(nil, "c", true, "same-key", nil)
			svc := d.serviceFor(consumer, bundle)
			seen.Store(svc, struct{}{})
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(key, value any) bool { count++; return true })
	assert.Equal(t, 1, count, "exactly one serial admitter must be created for a single StepAndKey")
}

// TestDispatcherRapidConcurrentDispatch is a property-based counterpart:
// across random numbers of keys and goroutines, every dispatched
// StepAndKey converges on exactly one admitter.
func TestDispatcherRapidConcurrentDispatch(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		numKeys := rapid.IntRange(1, 5).Draw(rt, "numKeys")
		numDispatches := rapid.IntRange(1, 50).Draw(rt, "numDispatches")

		pool := NewWorkerPool(4)
		defer pool.Shutdown()

		d := newDispatcher(pool, fakeRegistryFunc(func(*TransformNode, *Bundle) (Evaluator, error) {
			return &blockingEvaluator{}, nil
		}))
		consumer := &TransformNode{ID: "map", Name: "map"}

		seenPerKey := make([]sync.Map, numKeys)
		var wg sync.WaitGroup
		wg.Add(numDispatches)
		for i := 0; i < numDispatches; i++ {
			k := i % numKeys
			go func(k int) {
				defer wg.Done()
				bundle := NewBundle(nil, "c", true, k, nil)
				svc := d.serviceFor(consumer, bundle)
				seenPerKey[k].Store(svc, struct{}{})
			}(k)
		}
		wg.Wait()

		// Only keys below numDispatches received any dispatch.
		for k := 0; k < min(numKeys, numDispatches); k++ {
			count := 0
			seenPerKey[k].Range(func(key, value any) bool { count++; return true })
			if count != 1 {
				rt.Fatalf("key %d: expected exactly one admitter, got %d", k, count)
			}
		}
	})
}
