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

// ExpectKind selects which condition an Expectation states about an
// attribute.
type ExpectKind int

const (
	// ExpectValue requires the attribute to hold exactly the expected
	// value (and nothing else).
	ExpectValue ExpectKind = iota
	// ExpectExists requires the attribute to be present.
	ExpectExists
	// ExpectNotExists requires the attribute to be absent.
	ExpectNotExists
)

// Expectation is one condition a conditional put states about the
// target item before any mutation is applied. Value is meaningful only
// for ExpectValue.
type Expectation struct {
	Name  string
	Kind  ExpectKind
	Value string
}

// ExpectedValue builds a value expectation.
func ExpectedValue(name, value string) Expectation {
	return Expectation{Name: name, Kind: ExpectValue, Value: value}
}

// ExpectedExists builds an existence expectation. exists=false demands
// the attribute be absent.
func ExpectedExists(name string, exists bool) Expectation {
	if exists {
		return Expectation{Name: name, Kind: ExpectExists}
	}
	return Expectation{Name: name, Kind: ExpectNotExists}
}
