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

package query

import (
	"sort"
	"strconv"

	"github.com/basicdb/basicdb-go/internal/model"
)

// countItemName is the synthetic item carrying the result of a
// count(*) query; its single attribute is named count.
const countItemName = "Domain"

// Execute runs the query over the domain's items: the where filter,
// then ordering, limit and the projection via Finish. The input slice
// is expected in the backend's natural order, which is what an
// unordered query returns.
func Execute(q *Query, items []Item) (Results, error) {
	matches := items
	if q.Where != nil {
		matches = make([]Item, 0, len(items))
		for _, it := range items {
			if Match(q.Where, it) {
				matches = append(matches, it)
			}
		}
	}
	return Finish(q, matches)
}

// Finish applies everything after the where filter. Backends that push
// the filter down (for example as server-side JavaScript) call this
// directly on the pre-filtered items.
func Finish(q *Query, matches []Item) (Results, error) {
	ordered, err := applyOrder(q, matches)
	if err != nil {
		return nil, err
	}
	if q.Limit != nil && len(ordered) > *q.Limit {
		ordered = ordered[:*q.Limit]
	}
	if q.Count {
		count := model.NewValueSet(strconv.Itoa(len(ordered)))
		return Results{{Name: countItemName, Attrs: model.Attributes{"count": count}}}, nil
	}
	if q.All {
		return Results(ordered), nil
	}
	return projectColumns(q.Columns, ordered), nil
}

func applyOrder(q *Query, matches []Item) ([]Item, error) {
	ob := q.OrderBy
	if ob == nil {
		return matches, nil
	}
	if ob.ByItemName {
		ordered := append([]Item(nil), matches...)
		sort.Slice(ordered, func(i, j int) bool {
			if ob.Descending {
				return ordered[i].Name > ordered[j].Name
			}
			return ordered[i].Name < ordered[j].Name
		})
		return ordered, nil
	}

	// Sorting by an attribute is only defined when the where expression
	// references it; anything else is an invalid sort expression.
	if !containsString(q.WhereIdentifiers(), ob.Key) {
		return nil, model.NewInvalidSortExpression()
	}

	// Multi-valued sort keys are flattened into (value, item) pairs,
	// sorted, and deduplicated by item keeping the first occurrence.
	// Items without the key contribute no pairs and drop out.
	type pair struct {
		value string
		item  Item
	}
	var pairs []pair
	for _, it := range matches {
		for _, v := range it.Attrs[ob.Key].Values() {
			pairs = append(pairs, pair{value: v, item: it})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if ob.Descending {
			a, b = b, a
		}
		if a.value != b.value {
			return a.value < b.value
		}
		return a.item.Name < b.item.Name
	})
	ordered := make([]Item, 0, len(pairs))
	taken := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if _, ok := taken[p.item.Name]; ok {
			continue
		}
		taken[p.item.Name] = struct{}{}
		ordered = append(ordered, p.item)
	}
	return ordered, nil
}

// projectColumns keeps only the requested attributes. An item whose
// projection comes out empty is omitted entirely; the projection list
// never matches item names, so a literal itemName() column matches
// nothing.
func projectColumns(columns []string, items []Item) Results {
	want := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		want[c] = struct{}{}
	}
	var out Results
	for _, it := range items {
		attrs := model.Attributes{}
		for name, set := range it.Attrs {
			if _, ok := want[name]; ok {
				attrs[name] = set
			}
		}
		if !attrs.Empty() {
			out = append(out, Item{Name: it.Name, Attrs: attrs})
		}
	}
	return out
}
