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
	mapset "github.com/deckarep/golang-set/v2"
)

// scheduledSet is the concurrent set of TransformExecutors that are
// currently submitted to the worker pool or running. The monitor uses its
// cardinality as the quiescence signal, an atomic active-count that avoids
// any need for OS thread-state inspection. Readers tolerate weak
// consistency: missing an in-progress task at most delays quiescence by one
// tick.
type scheduledSet struct {
	set mapset.Set[*TransformExecutor]
}

func newScheduledSet() *scheduledSet {
	return &scheduledSet{set: mapset.NewSet[*TransformExecutor]()}
}

func (s *scheduledSet) add(t *TransformExecutor) {
	s.set.Add(t)
}

func (s *scheduledSet) remove(t *TransformExecutor) {
	s.set.Remove(t)
}

// size returns the number of tasks currently submitted to the pool or
// running. Zero means no task is making progress: the quiescence precondition.
func (s *scheduledSet) size() int {
	return s.set.Cardinality()
}
