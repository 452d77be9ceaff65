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

package storage

import (
	"fmt"

	"github.com/basicdb/basicdb-go/internal/model"
)

// EvaluateExpectation decides one expectation against an item's
// current attributes. Backends implement CheckExpectation by fetching
// the item and delegating here, which keeps the conditional-put rules
// identical everywhere:
//
//   - must-not-exist fails when the attribute is present
//   - must-exist fails when the attribute is absent
//   - a value expectation requires the attribute to exist, hold
//     exactly one value, and that value to be the expected one
func EvaluateExpectation(attrs model.Attributes, exp model.Expectation) error {
	set, present := attrs[exp.Name]
	switch exp.Kind {
	case model.ExpectNotExists:
		if present {
			return model.NewFoundUnexpectedAttribute(exp.Name)
		}
		return nil
	case model.ExpectExists:
		if !present {
			return model.NewConditionalCheckFailed(fmt.Sprintf("Attribute (%s) does not exist", exp.Name))
		}
		return nil
	default:
		if !present {
			return model.NewAttributeDoesNotExist(exp.Name)
		}
		if set.Len() > 1 {
			return model.NewMultiValuedAttribute(exp.Name)
		}
		if found := set.Values()[0]; found != exp.Value {
			return model.NewWrongValueFound(exp.Name, found, exp.Value)
		}
		return nil
	}
}
