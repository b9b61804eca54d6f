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
	"sync/atomic"

	"github.com/golang/glog"
	multierror "github.com/hashicorp/go-multierror"
)

// monitor is the single logical task that drives the pipeline: each tick
// drains one internal update, fires timers, and checks for quiescence. It
// is a state machine with one tick function that re-submits itself to the
// pool rather than recursing or spinning on a dedicated thread.
type monitor struct {
	graph      *Graph
	evalCtx    EvaluationContext
	dispatcher *Dispatcher
	pool       *WorkerPool
	updates    *updateQueue
	visible    *visibleQueue
	defaultCB  *defaultCompletionCallback

	rootSchedules atomic.Int64
	stopped       atomic.Bool
	lateErrs      chan error
}

func newMonitor(graph *Graph, evalCtx EvaluationContext, dispatcher *Dispatcher, pool *WorkerPool, updates *updateQueue, visible *visibleQueue, lateErrs chan error) *monitor {
	if lateErrs == nil {
		lateErrs = make(chan error, 64)
	}
	return &monitor{
		graph:      graph,
		evalCtx:    evalCtx,
		dispatcher: dispatcher,
		pool:       pool,
		updates:    updates,
		visible:    visible,
		defaultCB:  newDefaultCompletionCallback(evalCtx, updates),
		lateErrs:   lateErrs,
	}
}

// start submits the first tick.
func (m *monitor) start() {
	m.pool.Submit(m.tick)
}

// tick is one pass of the monitor's control loop. It never lets a panic
// escape to the pool: any internal failure is converted into a visible
// failure and the monitor exits without resubmitting.
func (m *monitor) tick() {
	if m.stopped.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.publishFailure(fmt.Errorf("monitor panic: %v", r), nil)
		}
	}()

	m.drainOneUpdate()

	if err := m.fireTimers(); err != nil {
		glog.Errorf("extracting fired timers failed: %v", err)
		m.publishFailure(err, nil)
		return
	}

	if m.evalCtx.IsDone() {
		m.finish()
		return
	}

	if m.dispatcher.scheduled.size() == 0 {
		m.injectRoots()
	}

	m.pool.Submit(m.tick)
}

// drainOneUpdate performs a single non-blocking poll of the internal
// update queue and acts on it.
func (m *monitor) drainOneUpdate() {
	upd, ok := m.updates.tryPop()
	if !ok {
		return
	}
	switch upd.kind {
	case updateProduced:
		for _, consumer := range m.graph.ConsumersOf(upd.bundle.Collection()) {
			m.dispatcher.ScheduleConsumption(consumer, upd.bundle, m.defaultCB)
		}
	case updateFailed:
		m.publishFailure(upd.err, upd.transform)
	}
}

// fireTimers asks the evaluation context for fired timers and schedules
// each non-empty (transform, key, domain) group as a synthetic keyed
// bundle.
func (m *monitor) fireTimers() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic extracting fired timers: %v", r)
		}
	}()

	fired, err := m.evalCtx.ExtractFiredTimers()
	if err != nil {
		return err
	}

	for transform, byKey := range fired {
		for key, byDomain := range byKey {
			for _, timers := range byDomain {
				if len(timers) == 0 {
					continue
				}
				m.scheduleTimerBundle(transform, key, timers)
			}
		}
	}
	return nil
}

func (m *monitor) scheduleTimerBundle(transform *TransformNode, key Key, timers []TimerData) {
	builder := m.evalCtx.CreateKeyedBundle(transform, key, transform.Input)
	bundle := builder.Build([]WindowedValue{{Value: TimerWorkItem{Key: key, Timers: timers}}})
	cb := newTimerCompletionCallback(m.evalCtx, m.updates, timers)
	m.dispatcher.ScheduleConsumption(transform, bundle, cb)
}

// injectRoots is the root-injection rule: when every scheduled
// TransformExecutor has finished (no task is making progress) and the
// pipeline isn't done, every root is re-scheduled with a nil bundle to
// inject more work. Roots are otherwise inert after the initial
// submission.
func (m *monitor) injectRoots() {
	for _, root := range m.graph.Roots() {
		m.rootSchedules.Add(1)
		m.dispatcher.ScheduleConsumption(root, nil, m.defaultCB)
	}
}

// finish publishes the terminal done update and shuts down the pool. The
// monitor does not resubmit itself after this point.
func (m *monitor) finish() {
	m.stopped.Store(true)
	m.visible.publish(VisibleUpdate{done: true})
	m.pool.Shutdown()
	m.drainLateErrors()
}

// publishFailure logs the offending transform's full name at error level
// and surfaces the failure through the visible queue. It does not cancel
// running tasks. The pool is shut down only when the evaluation context
// reports done; observing a failure through AwaitCompletion does not shut
// it down.
func (m *monitor) publishFailure(err error, transform *TransformNode) {
	if transform != nil {
		glog.Errorf("transform %s failed: %v", transform, err)
	} else {
		glog.Errorf("pipeline failed: %v", err)
	}
	m.visible.publish(VisibleUpdate{err: err, transform: transform})
}

// drainLateErrors collects any goroutine panics that PanicRecovery reported
// after the terminal update was already published. They cannot change the
// outcome the caller already observed, but they are not silently dropped:
// they are aggregated and logged.
func (m *monitor) drainLateErrors() {
	var agg error
	for {
		select {
		case err := <-m.lateErrs:
			agg = multierror.Append(agg, err)
		default:
			if agg != nil {
				glog.Errorf("goroutine panics after pipeline completion: %v", agg)
			}
			return
		}
	}
}
