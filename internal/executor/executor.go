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

// PipelineExecutor is the public surface of the core: Start,
// AwaitCompletion, and ScheduleConsumption. It owns the worker pool, the
// dispatcher, and the monitor, and wires them together.
type PipelineExecutor struct {
	pool       *WorkerPool
	dispatcher *Dispatcher
	monitor    *monitor
	visible    *visibleQueue

	startOnce sync.Once
}

// New builds a PipelineExecutor over graph, using registry to resolve
// evaluators and evalCtx to commit evaluation side effects and report
// completion.
func New(graph *Graph, registry EvaluatorRegistry, evalCtx EvaluationContext, opts Options) *PipelineExecutor {
	lateErrs := make(chan error, 64)
	pool := NewWorkerPool(opts.Workers).WithPanicChannel(lateErrs)
	dispatcher := newDispatcher(pool, registry)
	updates := newUpdateQueue()
	visible := newVisibleQueue()

	return &PipelineExecutor{
		pool:       pool,
		dispatcher: dispatcher,
		monitor:    newMonitor(graph, evalCtx, dispatcher, pool, updates, visible, lateErrs),
		visible:    visible,
	}
}

// Start submits the monitor's first tick; the root set is the one fixed in
// the Graph passed to New. Start does not block.
func (e *PipelineExecutor) Start() {
	e.startOnce.Do(e.monitor.start)
}

// AwaitCompletion blocks until a terminal visible update arrives. On
// success it returns nil as soon as the monitor has published done; the
// monitor shuts down the worker pool after publishing it. On failure it
// returns the underlying error and does not shut down the worker pool.
func (e *PipelineExecutor) AwaitCompletion() error {
	for {
		upd := e.visible.receive()
		if upd.done {
			return nil
		}
		if upd.err != nil {
			return upd.err
		}
	}
}

// ScheduleConsumption dispatches bundle into consumer exactly as the
// monitor does; exported so roots and tests can seed work.
func (e *PipelineExecutor) ScheduleConsumption(consumer *TransformNode, bundle *Bundle, callback CompletionCallback) {
	e.dispatcher.ScheduleConsumption(consumer, bundle, callback)
}
