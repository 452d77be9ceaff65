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

package model

// Updates maps attribute names to the values being added or replacing
// the current set, for one item.
type Updates = map[string]ValueSet

// BatchUpdates holds per-item updates for the batch put operation,
// keyed by item name.
type BatchUpdates = map[string]Updates

// Deletion describes what to remove from one attribute. All set to true
// removes the attribute outright and dominates Values.
type Deletion struct {
	Values ValueSet
	All    bool
}

// DeleteAll is the deletion that removes an attribute with all its
// values.
func DeleteAll() Deletion {
	return Deletion{All: true}
}

// DeleteValues is the deletion that removes only the listed values.
func DeleteValues(values ...string) Deletion {
	return Deletion{Values: NewValueSet(values...)}
}

// Deletions maps attribute names to their deletion specs for one item.
// An empty map means the whole item goes.
type Deletions = map[string]Deletion

// BatchDeletions holds per-item deletions for the batch delete
// operation, keyed by item name. An item mapped to an empty Deletions
// map is deleted entirely.
type BatchDeletions = map[string]Deletions
