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

// defaultCompletionCallback is the default CompletionCallback: HandleResult
// commits the evaluation with no fired timers and posts a produced
// ExecutorUpdate for every freshly committed output bundle; HandleThrowable
// posts a failed ExecutorUpdate. It is stateless aside from its references,
// so a single instance is shared and invoked concurrently across transforms.
type defaultCompletionCallback struct {
	evalCtx EvaluationContext
	updates *updateQueue
}

func newDefaultCompletionCallback(evalCtx EvaluationContext, updates *updateQueue) *defaultCompletionCallback {
	return &defaultCompletionCallback{evalCtx: evalCtx, updates: updates}
}

func (c *defaultCompletionCallback) HandleResult(input *Bundle, transform *TransformNode, result EvaluationResult) {
	outputs, err := c.evalCtx.HandleResult(input, nil, result)
	if err != nil {
		c.updates.push(failedUpdate(transform, err))
		return
	}
	for _, out := range outputs {
		c.updates.push(producedUpdate(transform, out))
	}
}

func (c *defaultCompletionCallback) HandleThrowable(_ *Bundle, transform *TransformNode, err error) {
	c.updates.push(failedUpdate(transform, err))
}

// timerCompletionCallback is identical to the default callback except the
// timer list that caused this execution is passed back to the evaluation
// context alongside the result, so it can mark those timers delivered and
// advance watermarks correctly.
type timerCompletionCallback struct {
	evalCtx EvaluationContext
	updates *updateQueue
	timers  []TimerData
}

func newTimerCompletionCallback(evalCtx EvaluationContext, updates *updateQueue, timers []TimerData) *timerCompletionCallback {
	return &timerCompletionCallback{evalCtx: evalCtx, updates: updates, timers: timers}
}

func (c *timerCompletionCallback) HandleResult(input *Bundle, transform *TransformNode, result EvaluationResult) {
	outputs, err := c.evalCtx.HandleResult(input, c.timers, result)
	if err != nil {
		c.updates.push(failedUpdate(transform, err))
		return
	}
	for _, out := range outputs {
		c.updates.push(producedUpdate(transform, out))
	}
}

func (c *timerCompletionCallback) HandleThrowable(_ *Bundle, transform *TransformNode, err error) {
	c.updates.push(failedUpdate(transform, err))
}
