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

// Package executor is the in-process bundle executor for a data-parallel
// pipeline runner. It drives a DAG of transforms to completion on a single
// machine with a worker pool, enforcing per-key serial execution, firing
// timers as synthetic input, detecting quiescence, and propagating the
// first observed failure to the caller of AwaitCompletion.
package executor
