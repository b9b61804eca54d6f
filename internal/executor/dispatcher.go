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

// Dispatcher is stateless routing: for each (consumer, bundle) it picks the
// right TransformExecutorService and schedules a TransformExecutor through
// it.
//
// A nil bundle is always routed through the parallel service, regardless of
// whether the consumer's output collection is declared keyed.
type Dispatcher struct {
	pool      *WorkerPool
	registry  EvaluatorRegistry
	parallel  *parallelExecutorService
	scheduled *scheduledSet

	// serial is a concurrent StepAndKey -> *serialExecutorService
	// registry. Entries are lazily materialized on first use via
	// LoadOrStore and are never removed during a run, so concurrent
	// dispatches for the same StepAndKey always converge on a single
	// serial admitter.
	serial sync.Map
}

func newDispatcher(pool *WorkerPool, registry EvaluatorRegistry) *Dispatcher {
	scheduled := newScheduledSet()
	return &Dispatcher{
		pool:      pool,
		registry:  registry,
		parallel:  newParallelExecutorService(pool, scheduled),
		scheduled: scheduled,
	}
}

// ScheduleConsumption schedules bundle into consumer via callback, through
// whichever TransformExecutorService the bundle's keyed-ness selects. It
// is exported so roots and tests can seed work exactly as the monitor does.
func (d *Dispatcher) ScheduleConsumption(consumer *TransformNode, bundle *Bundle, callback CompletionCallback) {
	exec := newTransformExecutor(d.registry, consumer, bundle, callback)

	service := d.serviceFor(consumer, bundle)
	exec.service = service
	service.schedule(exec)
}

func (d *Dispatcher) serviceFor(consumer *TransformNode, bundle *Bundle) transformExecutorService {
	if bundle != nil {
		if key, ok := bundle.Key(); ok {
			sk := StepAndKey{Transform: consumer, Key: key}
			v, _ := d.serial.LoadOrStore(sk, newSerialExecutorService(d.pool, d.scheduled))
			return v.(*serialExecutorService)
		}
	}
	return d.parallel
}
