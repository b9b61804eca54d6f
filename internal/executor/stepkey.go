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

// StepAndKey is the composite identity of a serial-execution slot: two
// bundles with equal StepAndKey must execute serially, never concurrently.
// It is lazily materialized on first dispatch by the Dispatcher and persists
// for the lifetime of the executor.
type StepAndKey struct {
	Transform *TransformNode
	Key       Key
}
