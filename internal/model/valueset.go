/*******************************************************************************
* Copyright (C) 2025 the BasicDB Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package model defines the BasicDB data model: owners hold domains,
// domains hold items, items hold multi-valued string attributes. Values
// are opaque byte strings; ordering, when it matters, is lexicographic.
package model

import "sort"

// ValueSet is the set of values bound to one attribute. Values are
// unordered and deduplicated. An attribute whose set becomes empty does
// not exist; callers are expected to erase the attribute key instead of
// keeping an empty set around.
type ValueSet map[string]struct{}

// NewValueSet builds a set from the given values.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value into the set.
func (s ValueSet) Add(value string) {
	s[value] = struct{}{}
}

// Remove drops a value from the set if present.
func (s ValueSet) Remove(value string) {
	delete(s, value)
}

// Contains reports whether the value is in the set.
func (s ValueSet) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

// Len returns the number of distinct values.
func (s ValueSet) Len() int {
	return len(s)
}

// Values returns the values sorted lexicographically. Sorting keeps XML
// output and test expectations stable without promising order at the
// storage layer.
func (s ValueSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s ValueSet) Clone() ValueSet {
	out := make(ValueSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same values.
func (s ValueSet) Equal(other ValueSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}

// Attributes maps attribute names to their value sets. An item exists
// iff its Attributes map holds at least one attribute-value pair.
type Attributes map[string]ValueSet

// AttributesFromLists converts the list form used by JSON and BSON item
// documents into the set form.
func AttributesFromLists(lists map[string][]string) Attributes {
	attrs := make(Attributes, len(lists))
	for name, values := range lists {
		if len(values) == 0 {
			continue
		}
		attrs[name] = NewValueSet(values...)
	}
	return attrs
}

// Add inserts one value into the named attribute's set, creating the
// set on first use.
func (a Attributes) Add(name, value string) {
	set, ok := a[name]
	if !ok {
		set = NewValueSet()
		a[name] = set
	}
	set.Add(value)
}

// Lists converts to the list form used by JSON and BSON item documents.
// Value lists come out sorted.
func (a Attributes) Lists() map[string][]string {
	lists := make(map[string][]string, len(a))
	for name, set := range a {
		lists[name] = set.Values()
	}
	return lists
}

// Names returns the attribute names sorted lexicographically.
func (a Attributes) Names() []string {
	out := make([]string, 0, len(a))
	for name := range a {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for name, set := range a {
		out[name] = set.Clone()
	}
	return out
}

// Empty reports whether the item has no attribute-value pairs left,
// which by the data model means the item does not exist.
func (a Attributes) Empty() bool {
	return len(a) == 0
}
