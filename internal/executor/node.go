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

// TransformNode is a node in the pipeline graph.
type TransformNode struct {
	// ID is a stable identity for the transform, used in StepAndKey and in
	// log messages.
	ID string
	// Name is the transform's full name, logged at error level on failure.
	Name string
	// Input is the transform's input collection. Roots have no input.
	Input Collection
	// Outputs lists the collections this transform produces.
	Outputs []Collection
	// Root is true iff this transform has no upstream input and produces
	// bundles from an external source.
	Root bool
}

func (t *TransformNode) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Graph holds the pipeline graph metadata the executor treats as immutable
// after Start: valueToConsumers, the KeyedCollectionSet, and the root set.
type Graph struct {
	consumers map[Collection][]*TransformNode
	keyed     mapset.Set[Collection]
	roots     []*TransformNode
}

// NewGraph builds the immutable graph metadata. consumers is
// valueToConsumers; keyedCollections is the KeyedCollectionSet; roots is
// the fixed root set.
func NewGraph(consumers map[Collection][]*TransformNode, keyedCollections []Collection, roots []*TransformNode) *Graph {
	keyed := mapset.NewSet[Collection]()
	for _, c := range keyedCollections {
		keyed.Add(c)
	}
	return &Graph{
		consumers: consumers,
		keyed:     keyed,
		roots:     roots,
	}
}

// ConsumersOf returns the transforms registered to consume c.
func (g *Graph) ConsumersOf(c Collection) []*TransformNode {
	return g.consumers[c]
}

// IsKeyed reports whether c is a member of the KeyedCollectionSet.
func (g *Graph) IsKeyed(c Collection) bool {
	return g.keyed.Contains(c)
}

// Roots returns the fixed root set given to NewGraph.
func (g *Graph) Roots() []*TransformNode {
	return g.roots
}
