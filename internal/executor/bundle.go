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
	"time"

	"github.com/google/uuid"
)

// Collection identifies a logical collection (a PCollection-like value) that
// flows between transforms in the graph.
type Collection string

// Key identifies the partition a keyed Bundle belongs to. Values must be
// comparable: they end up as part of a StepAndKey, which is used as a map
// key in the dispatcher's serial-admitter registry.
type Key any

// Window is opaque to the executor; it is carried through only so the
// evaluation context can make windowing decisions.
type Window any

// WindowedValue is a single element with its assigned windows and event
// timestamp.
type WindowedValue struct {
	Value     any
	Windows   []Window
	Timestamp time.Time
}

// Bundle is an immutable batch of elements flowing between transforms. A
// Bundle is consumed exactly once per consumer; it is never mutated after
// creation.
type Bundle struct {
	id         uuid.UUID
	producer   *TransformNode
	collection Collection
	keyed      bool
	key        Key
	values     []WindowedValue
}

// NewBundle constructs a Bundle. producer may be nil for bundles seeding a
// root transform. keyed must be true iff the owning collection is declared
// keyed (see KeyedCollectionSet); key is ignored when keyed is false.
func NewBundle(producer *TransformNode, collection Collection, keyed bool, key Key, values []WindowedValue) *Bundle {
	return &Bundle{
		id:         uuid.New(),
		producer:   producer,
		collection: collection,
		keyed:      keyed,
		key:        key,
		values:     values,
	}
}

// ID returns the Bundle's stable identity, a fresh UUID per Bundle. The
// executor itself does not read it.
func (b *Bundle) ID() uuid.UUID { return b.id }

// Producer returns the transform that produced this Bundle, or nil for a
// root input.
func (b *Bundle) Producer() *TransformNode { return b.producer }

// Collection returns the logical collection this Bundle belongs to.
func (b *Bundle) Collection() Collection { return b.collection }

// Key returns the Bundle's key and true iff the Bundle's collection is
// declared keyed. A nil Bundle or one from an unkeyed collection reports
// ok == false.
func (b *Bundle) Key() (key Key, ok bool) {
	if b == nil || !b.keyed {
		return nil, false
	}
	return b.key, true
}

// Values returns the Bundle's ordered sequence of windowed values.
func (b *Bundle) Values() []WindowedValue { return b.values }
