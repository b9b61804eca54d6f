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

import "fmt"

// CompletionCallback is invoked by a TransformExecutor exactly once per
// run, with either a result or a throwable (never both, never neither).
type CompletionCallback interface {
	HandleResult(input *Bundle, transform *TransformNode, result EvaluationResult)
	HandleThrowable(input *Bundle, transform *TransformNode, err error)
}

// transformExecutorService is the admission layer a TransformExecutor
// reports back to on completion: it drops the task from the scheduled-set
// and, for the serial variant, promotes the next queued task.
type transformExecutorService interface {
	schedule(t *TransformExecutor)
	onTaskComplete(t *TransformExecutor)
}

// TransformExecutor is a one-shot unit of work: it evaluates one
// (transform, input bundle) pair and reports the result or failure via its
// CompletionCallback. It never lets a panic or error escape to the worker
// pool; everything is converted into exactly one callback invocation.
type TransformExecutor struct {
	registry  EvaluatorRegistry
	transform *TransformNode
	input     *Bundle // nil for root injection
	callback  CompletionCallback
	service   transformExecutorService
}

func newTransformExecutor(
	registry EvaluatorRegistry,
	transform *TransformNode,
	input *Bundle,
	callback CompletionCallback,
) *TransformExecutor {
	return &TransformExecutor{
		registry:  registry,
		transform: transform,
		input:     input,
		callback:  callback,
	}
}

// Run evaluates the bundle and invokes the callback. It unconditionally
// notifies its admitting service on completion, success or failure, so the
// service can release its slot and/or promote a queued successor.
func (t *TransformExecutor) Run() {
	defer t.service.onTaskComplete(t)

	result, err := t.evaluate()
	if err != nil {
		t.callback.HandleThrowable(t.input, t.transform, err)
		return
	}
	t.callback.HandleResult(t.input, t.transform, result)
}

// evaluate resolves an Evaluator for the transform and runs it to
// completion. A single recover covers both EvaluatorFor and the
// Start/ProcessElement/Finish sequence, so a panic anywhere in evaluation
// still leaves Run with exactly one outcome to report.
func (t *TransformExecutor) evaluate() (result EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating transform %s: %v", t.transform, r)
		}
	}()

	ev, err := t.registry.EvaluatorFor(t.transform, t.input)
	if err != nil {
		return nil, err
	}

	if err := ev.Start(t.input); err != nil {
		return nil, err
	}
	if t.input != nil {
		for _, v := range t.input.Values() {
			if err := ev.ProcessElement(v); err != nil {
				return nil, err
			}
		}
	}
	return ev.Finish()
}
