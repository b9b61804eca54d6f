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

// Package executortest provides fakes for executor.EvaluatorRegistry and
// executor.EvaluationContext: small, configurable stand-ins rather than
// mocks generated from an interface description.
package executortest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/riverrun-project/riverrun/internal/executor"
)

// FuncEvaluator is an executor.Evaluator built from closures, for tests
// that want to assert per-call behavior without a full fake transform.
type FuncEvaluator struct {
	StartFn   func(*executor.Bundle) error
	ProcessFn func(executor.WindowedValue) error
	FinishFn  func([]executor.WindowedValue) (executor.EvaluationResult, error)

	mu       sync.Mutex
	received []executor.WindowedValue
}

func (f *FuncEvaluator) Start(b *executor.Bundle) error {
	if f.StartFn != nil {
		return f.StartFn(b)
	}
	return nil
}

func (f *FuncEvaluator) ProcessElement(v executor.WindowedValue) error {
	f.mu.Lock()
	f.received = append(f.received, v)
	f.mu.Unlock()
	if f.ProcessFn != nil {
		return f.ProcessFn(v)
	}
	return nil
}

func (f *FuncEvaluator) Finish() (executor.EvaluationResult, error) {
	f.mu.Lock()
	received := append([]executor.WindowedValue(nil), f.received...)
	f.mu.Unlock()
	if f.FinishFn != nil {
		return f.FinishFn(received)
	}
	return received, nil
}

// Received returns the elements seen by ProcessElement so far.
func (f *FuncEvaluator) Received() []executor.WindowedValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.WindowedValue(nil), f.received...)
}

// EvaluatorFactory builds a fresh Evaluator for one (transform, input)
// evaluation.
type EvaluatorFactory func(transform *executor.TransformNode, input *executor.Bundle) (executor.Evaluator, error)

// FakeRegistry is a configurable executor.EvaluatorRegistry: each
// transform ID maps to a factory, and every EvaluatorFor call is counted.
type FakeRegistry struct {
	mu          sync.Mutex
	factories   map[string]EvaluatorFactory
	invocations map[string]int
}

func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{
		factories:   make(map[string]EvaluatorFactory),
		invocations: make(map[string]int),
	}
}

// Register installs the factory used for transformID.
func (r *FakeRegistry) Register(transformID string, f EvaluatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[transformID] = f
}

func (r *FakeRegistry) EvaluatorFor(transform *executor.TransformNode, input *executor.Bundle) (executor.Evaluator, error) {
	r.mu.Lock()
	r.invocations[transform.ID]++
	factory := r.factories[transform.ID]
	r.mu.Unlock()
	if factory == nil {
		return nil, fmt.Errorf("executortest: no evaluator registered for transform %q", transform.ID)
	}
	return factory(transform, input)
}

// InvocationsFor returns how many times EvaluatorFor was called for
// transformID.
func (r *FakeRegistry) InvocationsFor(transformID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invocations[transformID]
}

// HandleResultCall records one HandleResult invocation, for tests that
// want to inspect what the executor committed.
type HandleResultCall struct {
	Input       *executor.Bundle
	FiredTimers []executor.TimerData
	Result      executor.EvaluationResult
}

// FakeEvaluationContext is a configurable executor.EvaluationContext. By
// default HandleResult commits no output bundles and ExtractFiredTimers
// returns nothing; tests call SetHandleResultFunc and SetFiredTimers to
// drive specific scenarios.
type FakeEvaluationContext struct {
	clock clockwork.Clock
	opts  executor.PipelineOptions

	mu             sync.Mutex
	handleResultFn func(input *executor.Bundle, firedTimers []executor.TimerData, result executor.EvaluationResult) ([]*executor.Bundle, error)
	fired          executor.FiredTimers
	calls          []HandleResultCall

	done atomic.Bool
}

func NewFakeEvaluationContext(clock clockwork.Clock, opts executor.PipelineOptions) *FakeEvaluationContext {
	return &FakeEvaluationContext{clock: clock, opts: opts}
}

// SetHandleResultFunc overrides HandleResult's behavior.
func (c *FakeEvaluationContext) SetHandleResultFunc(f func(input *executor.Bundle, firedTimers []executor.TimerData, result executor.EvaluationResult) ([]*executor.Bundle, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handleResultFn = f
}

func (c *FakeEvaluationContext) HandleResult(input *executor.Bundle, firedTimers []executor.TimerData, result executor.EvaluationResult) ([]*executor.Bundle, error) {
	c.mu.Lock()
	c.calls = append(c.calls, HandleResultCall{Input: input, FiredTimers: firedTimers, Result: result})
	fn := c.handleResultFn
	c.mu.Unlock()
	if fn != nil {
		return fn(input, firedTimers, result)
	}
	return nil, nil
}

// Calls returns every HandleResult invocation observed so far.
func (c *FakeEvaluationContext) Calls() []HandleResultCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HandleResultCall(nil), c.calls...)
}

// SetFiredTimers arms the next ExtractFiredTimers call; it is cleared once
// consumed, matching the real context's "returns and clears" contract.
func (c *FakeEvaluationContext) SetFiredTimers(f executor.FiredTimers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fired = f
}

func (c *FakeEvaluationContext) ExtractFiredTimers() (executor.FiredTimers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fired
	c.fired = nil
	return f, nil
}

// SetDone controls IsDone's return value.
func (c *FakeEvaluationContext) SetDone(v bool) { c.done.Store(v) }

func (c *FakeEvaluationContext) IsDone() bool { return c.done.Load() }

func (c *FakeEvaluationContext) CreateKeyedBundle(producer *executor.TransformNode, key executor.Key, outputCollection executor.Collection) executor.BundleBuilder {
	return &fakeBundleBuilder{producer: producer, key: key, collection: outputCollection}
}

func (c *FakeEvaluationContext) PipelineOptions() executor.PipelineOptions { return c.opts }

// Clock exposes the virtual clock this context was built with. The fake
// does not consult it: ExtractFiredTimers returns only what SetFiredTimers
// armed, so advancing the clock fires no timers.
func (c *FakeEvaluationContext) Clock() clockwork.Clock { return c.clock }

type fakeBundleBuilder struct {
	producer   *executor.TransformNode
	key        executor.Key
	collection executor.Collection
}

func (b *fakeBundleBuilder) Build(values []executor.WindowedValue) *executor.Bundle {
	return executor.NewBundle(b.producer, b.collection, true, b.key, values)
}
