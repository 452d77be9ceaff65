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

package api

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/basicdb/basicdb-go/internal/model"
)

// The wire encodes repeated structures as numbered parameter groups:
// Attribute.1.Name=Color&Attribute.1.Value=red&Attribute.2.Name=...
// Batch actions nest a second numbering level under Item.N.
var (
	putAttrPattern  = regexp.MustCompile(`^Attribute\.(\d+)\.(Name|Value|Replace)$`)
	delAttrPattern  = regexp.MustCompile(`^Attribute\.(\d+)\.(Name|Value)$`)
	expectedPattern = regexp.MustCompile(`^Expected\.(\d+)\.(Name|Value|Exists)$`)
	batchPattern    = regexp.MustCompile(`^Item\.(\d+)\.(.+)$`)
)

// numberedGroups collects parameters matching the pattern into one
// field map per group index.
func numberedGroups(pattern *regexp.Regexp, params map[string]string) map[int]map[string]string {
	groups := map[int]map[string]string{}
	for key, value := range params {
		m := pattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		group, ok := groups[idx]
		if !ok {
			group = map[string]string{}
			groups[idx] = group
		}
		group[m[2]] = value
	}
	return groups
}

func sortedIndexes(groups map[int]map[string]string) []int {
	idxs := make([]int, 0, len(groups))
	for i := range groups {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// flatten reduces multi-valued form parameters to their first value;
// numbered groups never repeat a key.
func flatten(params url.Values) map[string]string {
	flat := make(map[string]string, len(params))
	for key, values := range params {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}

// decodeUpdates splits Attribute.N groups into additions and
// replacements. A group routes to replacements only when Replace is
// the literal string "true"; groups missing Name or Value are ignored.
func decodeUpdates(params map[string]string) (additions, replacements model.Updates) {
	additions = model.Updates{}
	replacements = model.Updates{}
	for _, group := range numberedGroups(putAttrPattern, params) {
		name, hasName := group["Name"]
		value, hasValue := group["Value"]
		if !hasName || !hasValue {
			continue
		}
		target := additions
		if group["Replace"] == "true" {
			target = replacements
		}
		if _, ok := target[name]; !ok {
			target[name] = model.NewValueSet()
		}
		target[name].Add(value)
	}
	return additions, replacements
}

// decodeDeletions reads Attribute.N groups for the delete actions. A
// group with a Name and no Value removes the whole attribute and
// dominates any value-level deletions of the same attribute.
func decodeDeletions(params map[string]string) model.Deletions {
	deletions := model.Deletions{}
	for _, group := range numberedGroups(delAttrPattern, params) {
		name, hasName := group["Name"]
		if !hasName {
			continue
		}
		del := deletions[name]
		if value, hasValue := group["Value"]; hasValue {
			if del.Values == nil {
				del.Values = model.NewValueSet()
			}
			del.Values.Add(value)
		} else {
			del.All = true
		}
		deletions[name] = del
	}
	return deletions
}

// decodeExpectations reads Expected.N groups in index order. Value
// wins over Exists when both are present; Exists means "must be
// absent" only for the literal string "false". Groups with neither
// field are dropped.
func decodeExpectations(params map[string]string) []model.Expectation {
	groups := numberedGroups(expectedPattern, params)
	var expectations []model.Expectation
	for _, idx := range sortedIndexes(groups) {
		group := groups[idx]
		name, hasName := group["Name"]
		if !hasName {
			continue
		}
		if value, hasValue := group["Value"]; hasValue {
			expectations = append(expectations, model.ExpectedValue(name, value))
			continue
		}
		if exists, hasExists := group["Exists"]; hasExists {
			expectations = append(expectations, model.ExpectedExists(name, exists != "false"))
		}
	}
	return expectations
}

// decodeBatchUpdates reads Item.N.ItemName plus nested
// Item.N.Attribute.M groups. Groups naming the same item merge.
func decodeBatchUpdates(params map[string]string) (additions, replacements model.BatchUpdates) {
	additions = model.BatchUpdates{}
	replacements = model.BatchUpdates{}
	for _, group := range numberedGroups(batchPattern, params) {
		item, ok := group["ItemName"]
		if !ok {
			continue
		}
		itemAdds, itemRepls := decodeUpdates(group)
		mergeUpdates(additions, item, itemAdds)
		mergeUpdates(replacements, item, itemRepls)
	}
	return additions, replacements
}

func mergeUpdates(batch model.BatchUpdates, item string, updates model.Updates) {
	if len(updates) == 0 {
		return
	}
	existing, ok := batch[item]
	if !ok {
		batch[item] = updates
		return
	}
	for name, values := range updates {
		if _, ok := existing[name]; !ok {
			existing[name] = values
			continue
		}
		for _, v := range values.Values() {
			existing[name].Add(v)
		}
	}
}

// decodeBatchDeletions reads Item.N groups for BatchDeleteAttributes.
// An item group with no attribute groups at all deletes the whole
// item.
func decodeBatchDeletions(params map[string]string) model.BatchDeletions {
	deletions := model.BatchDeletions{}
	for _, group := range numberedGroups(batchPattern, params) {
		item, ok := group["ItemName"]
		if !ok {
			continue
		}
		itemDels := decodeDeletions(group)
		existing, ok := deletions[item]
		if !ok {
			deletions[item] = itemDels
			continue
		}
		for name, del := range itemDels {
			merged := existing[name]
			merged.All = merged.All || del.All
			if del.Values != nil {
				if merged.Values == nil {
					merged.Values = model.NewValueSet()
				}
				for _, v := range del.Values.Values() {
					merged.Values.Add(v)
				}
			}
			existing[name] = merged
		}
	}
	return deletions
}
