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

package main

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/riverrun-project/riverrun/internal/executor"
)

const collectionLines = executor.Collection("lines")

var (
	sourceNode  = &executor.TransformNode{ID: "source", Name: "ReadLines", Root: true, Outputs: []executor.Collection{collectionLines}}
	counterNode = &executor.TransformNode{ID: "counter", Name: "CountWords", Input: collectionLines}
)

func wordCountGraph() *executor.Graph {
	return executor.NewGraph(
		map[executor.Collection][]*executor.TransformNode{
			collectionLines: {counterNode},
		},
		nil,
		[]*executor.TransformNode{sourceNode},
	)
}

// lineSource evaluates the root transform: on its first invocation it emits
// every input line as its own unkeyed bundle, then goes permanently inert.
type lineSource struct {
	lines   []string
	emitted *atomic.Bool
}

func (s *lineSource) Start(*executor.Bundle) error               { return nil }
func (s *lineSource) ProcessElement(executor.WindowedValue) error { return nil }
func (s *lineSource) Finish() (executor.EvaluationResult, error) {
	if !s.emitted.CompareAndSwap(false, true) {
		return nil, nil
	}
	return s.lines, nil
}

// lineCounter is handed one line per bundle; the real tallying happens in
// wordCountContext.HandleResult, which folds the line into the shared tally.
type lineCounter struct{}

func (lineCounter) Start(*executor.Bundle) error               { return nil }
func (lineCounter) ProcessElement(executor.WindowedValue) error { return nil }
func (lineCounter) Finish() (executor.EvaluationResult, error)  { return nil, nil }

func countWords(line string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.Fields(line) {
		counts[strings.ToLower(w)]++
	}
	return counts
}

// newWordCountRegistry returns an EvaluatorRegistry that drives the demo
// pipeline above: source reads lines, counter tallies per-line word counts.
func newWordCountRegistry(lines []string) executor.EvaluatorRegistry {
	emitted := &atomic.Bool{}
	return registryFunc(func(transform *executor.TransformNode, _ *executor.Bundle) (executor.Evaluator, error) {
		switch transform.ID {
		case sourceNode.ID:
			return &lineSource{lines: lines, emitted: emitted}, nil
		case counterNode.ID:
			return lineCounter{}, nil
		}
		return nil, nil
	})
}

type registryFunc func(transform *executor.TransformNode, input *executor.Bundle) (executor.Evaluator, error)

func (f registryFunc) EvaluatorFor(transform *executor.TransformNode, input *executor.Bundle) (executor.Evaluator, error) {
	return f(transform, input)
}

// wordCountContext is the demo's EvaluationContext: it commits source
// output as downstream "lines" bundles, folds each counter result into a
// shared tally, and reports done once every line has been counted.
type wordCountContext struct {
	totalLines int32
	counted    int32

	mu    sync.Mutex
	tally map[string]int
}

func newWordCountContext(totalLines int) *wordCountContext {
	return &wordCountContext{
		totalLines: int32(totalLines),
		tally:      make(map[string]int),
	}
}

func (c *wordCountContext) HandleResult(input *executor.Bundle, _ []executor.TimerData, result executor.EvaluationResult) ([]*executor.Bundle, error) {
	if input == nil {
		lines, _ := result.([]string)
		var out []*executor.Bundle
		for _, line := range lines {
			out = append(out, executor.NewBundle(sourceNode, collectionLines, false, nil, []executor.WindowedValue{{Value: line}}))
		}
		return out, nil
	}

	line, _ := input.Values()[0].Value.(string)
	counts := countWords(line)

	c.mu.Lock()
	for w, n := range counts {
		c.tally[w] += n
	}
	c.mu.Unlock()
	atomic.AddInt32(&c.counted, 1)
	return nil, nil
}

func (c *wordCountContext) ExtractFiredTimers() (executor.FiredTimers, error) { return nil, nil }

func (c *wordCountContext) IsDone() bool {
	return atomic.LoadInt32(&c.counted) >= c.totalLines
}

func (c *wordCountContext) CreateKeyedBundle(*executor.TransformNode, executor.Key, executor.Collection) executor.BundleBuilder {
	return nil
}

func (c *wordCountContext) PipelineOptions() executor.PipelineOptions {
	return executor.PipelineOptions{AppName: "riverrun-wordcount"}
}

// Tally returns a snapshot of the word counts accumulated so far.
func (c *wordCountContext) Tally() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.tally))
	for k, v := range c.tally {
		out[k] = v
	}
	return out
}
