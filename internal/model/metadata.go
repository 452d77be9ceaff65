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

// DomainMetadata carries the counters the DomainMetadata action
// reports. Name counts and sizes are over unique attribute names;
// value counts and sizes are over every attribute-value pair.
type DomainMetadata struct {
	ItemCount                int
	ItemNamesSizeBytes       int
	AttributeNameCount       int
	AttributeNamesSizeBytes  int
	AttributeValueCount      int
	AttributeValuesSizeBytes int
	Timestamp                int64
}

// MeasureDomain computes metadata counters from a full in-memory view
// of a domain. Backends without aggregate queries feed their item maps
// through this.
func MeasureDomain(items map[string]Attributes) DomainMetadata {
	var md DomainMetadata
	names := make(map[string]struct{})
	for itemName, attrs := range items {
		if attrs.Empty() {
			continue
		}
		md.ItemCount++
		md.ItemNamesSizeBytes += len(itemName)
		for attrName, set := range attrs {
			names[attrName] = struct{}{}
			for v := range set {
				md.AttributeValueCount++
				md.AttributeValuesSizeBytes += len(v)
			}
		}
	}
	md.AttributeNameCount = len(names)
	for name := range names {
		md.AttributeNamesSizeBytes += len(name)
	}
	return md
}
