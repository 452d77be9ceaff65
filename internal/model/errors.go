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

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API-visible failure. Kind doubles as the root element
// name of the XML error envelope; Status is the HTTP status the
// handler answers with.
type Error struct {
	Kind    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// AsError unwraps an API error from an error chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewConditionalCheckFailed reports a failed put expectation with a
// caller-supplied detail message.
func NewConditionalCheckFailed(detail string) *Error {
	return &Error{
		Kind:    "ConditionalCheckFailed",
		Status:  http.StatusConflict,
		Message: "Conditional check failed: " + detail,
	}
}

// NewWrongValueFound reports a value expectation that found a
// different value.
func NewWrongValueFound(attr, found, expected string) *Error {
	return &Error{
		Kind:   "ConditionalCheckFailed",
		Status: http.StatusConflict,
		Message: fmt.Sprintf(
			"Conditional check failed. Attribute (%s) value is (%s) but was expected (%s)",
			attr, found, expected),
	}
}

// NewFoundUnexpectedAttribute reports a must-not-exist expectation that
// found the attribute present.
func NewFoundUnexpectedAttribute(attr string) *Error {
	return &Error{
		Kind:    "ConditionalCheckFailed",
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("Conditional check failed: Attribute (%s) value exists", attr),
	}
}

// NewAttributeDoesNotExist reports a value expectation against an
// attribute the item does not have.
func NewAttributeDoesNotExist(attr string) *Error {
	return &Error{
		Kind:    "AttributeDoesNotExist",
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Attribute (%s) does not exist", attr),
	}
}

// NewMultiValuedAttribute reports a value expectation against an
// attribute holding more than one value.
func NewMultiValuedAttribute(attr string) *Error {
	return &Error{
		Kind:   "MultiValuedAttribute",
		Status: http.StatusConflict,
		Message: fmt.Sprintf(
			"Attribute (%s) is multi-valued. Conditional check can only be performed on a single-valued attribute",
			attr),
	}
}

// NewInvalidQueryExpression reports an unparsable or ill-typed select
// expression.
func NewInvalidQueryExpression() *Error {
	return &Error{
		Kind:    "InvalidQueryExpression",
		Status:  http.StatusBadRequest,
		Message: "The specified query expression syntax is not valid.",
	}
}

// NewInvalidSortExpression reports an order-by key that is neither
// itemName() nor referenced by the where expression.
func NewInvalidSortExpression() *Error {
	return &Error{
		Kind:   "InvalidSortExpression",
		Status: http.StatusBadRequest,
		Message: "Invalid sort expression. The sort attribute must be present " +
			"in at least one of the predicates, and the predicate cannot contain the is null operator.",
	}
}

// NewUnknownAction reports an unrecognized Action parameter.
func NewUnknownAction(action string) *Error {
	return &Error{
		Kind:    "UnknownAction",
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("The action %s is not valid for this web service.", action),
	}
}

// NewInternalError wraps a backend failure for the wire.
func NewInternalError(err error) *Error {
	return &Error{
		Kind:    "InternalError",
		Status:  http.StatusInternalServerError,
		Message: err.Error(),
	}
}
