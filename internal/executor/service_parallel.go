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

// parallelExecutorService is the parallel TransformExecutorService
// variant: schedule submits immediately to the shared worker pool, with no
// ordering and no bound beyond the pool's own.
type parallelExecutorService struct {
	pool      *WorkerPool
	scheduled *scheduledSet
}

func newParallelExecutorService(pool *WorkerPool, scheduled *scheduledSet) *parallelExecutorService {
	return &parallelExecutorService{pool: pool, scheduled: scheduled}
}

func (p *parallelExecutorService) schedule(t *TransformExecutor) {
	p.scheduled.add(t)
	p.pool.Submit(t.Run)
}

func (p *parallelExecutorService) onTaskComplete(t *TransformExecutor) {
	p.scheduled.remove(t)
}
