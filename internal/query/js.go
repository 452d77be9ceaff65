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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotScriptable reports a where expression with no JavaScript
// rendering. every() needs the full value set and INTERSECTION runs
// its own product iterations, so both are evaluated client-side only.
var ErrNotScriptable = errors.New("where expression has no JavaScript rendering")

// WhereJS renders the where expression as a JavaScript boolean
// expression for a backend that evaluates filters server-side. The
// expression is written against three conventional variables the
// caller's wrapper must define per candidate item:
//
//	val      object mapping attribute name to its array of values
//	vals     object mapping attribute name to the value chosen by the
//	         current product combination
//	itemName the item's name as a string
//
// A query without a where clause renders as "true".
func (q *Query) WhereJS() (string, error) {
	if q.Where == nil {
		return "true", nil
	}
	return q.Where.jsExpr()
}

func (l *Literal) jsExpr() (string, error) {
	return strconv.Quote(l.Value), nil
}

func (v *ValueList) jsExpr() (string, error) {
	return "", ErrNotScriptable
}

func (n *Null) jsExpr() (string, error) {
	return "", ErrNotScriptable
}

func (i *Identifier) jsExpr() (string, error) {
	return fmt.Sprintf("vals[%s]", strconv.Quote(i.Name)), nil
}

func (e *EveryIdentifier) jsExpr() (string, error) {
	return "", ErrNotScriptable
}

func (n *ItemName) jsExpr() (string, error) {
	return "itemName", nil
}

// jsOperand renders an operand along with the guard that makes the
// surrounding comparison false when the operand cannot resolve.
func jsOperand(op Operand) (expr, guard string, err error) {
	switch v := op.(type) {
	case *Identifier:
		expr, err = v.jsExpr()
		if err != nil {
			return "", "", err
		}
		return expr, expr + " !== undefined", nil
	case *Literal, *ItemName:
		expr, err = v.jsExpr()
		return expr, "", err
	}
	return "", "", ErrNotScriptable
}

func (c *Comparison) jsExpr() (string, error) {
	switch c.Op {
	case OpIsNull, OpIsNotNull:
		ident, ok := c.Left.(*Identifier)
		if !ok {
			return "", ErrNotScriptable
		}
		cmp := "==="
		if c.Op == OpIsNotNull {
			cmp = "!=="
		}
		return fmt.Sprintf("(val[%s] %s undefined)", strconv.Quote(ident.Name), cmp), nil
	case OpIn:
		left, guard, err := jsOperand(c.Left)
		if err != nil {
			return "", err
		}
		list, ok := c.Right.(*ValueList)
		if !ok {
			return "", ErrNotScriptable
		}
		terms := make([]string, 0, len(list.Values))
		for _, v := range list.Values {
			terms = append(terms, fmt.Sprintf("%s == %s", left, strconv.Quote(v)))
		}
		return jsGuarded(guard, "("+strings.Join(terms, " || ")+")"), nil
	case OpLike:
		left, guard, err := jsOperand(c.Left)
		if err != nil {
			return "", err
		}
		lit, ok := c.Right.(*Literal)
		if !ok {
			return "", ErrNotScriptable
		}
		re := strconv.Quote("^" + likePattern(lit.Value))
		return jsGuarded(guard, fmt.Sprintf("(%s.match(new RegExp(%s)) !== null)", left, re)), nil
	}

	left, lguard, err := jsOperand(c.Left)
	if err != nil {
		return "", err
	}
	right, rguard, err := jsOperand(c.Right)
	if err != nil {
		return "", err
	}
	var op string
	switch c.Op {
	case OpEq:
		op = "=="
	case OpNotEq:
		op = "!="
	case OpLess:
		op = "<"
	case OpLessEq:
		op = "<="
	case OpGreater:
		op = ">"
	case OpGreaterEq:
		op = ">="
	default:
		return "", ErrNotScriptable
	}
	return jsGuarded(jsAllGuards(lguard, rguard), fmt.Sprintf("(%s %s %s)", left, op, right)), nil
}

func (b *Between) jsExpr() (string, error) {
	val, guard, err := jsOperand(b.Operand)
	if err != nil {
		return "", err
	}
	lo, _, err := jsOperand(b.Lo)
	if err != nil {
		return "", err
	}
	hi, _, err := jsOperand(b.Hi)
	if err != nil {
		return "", err
	}
	return jsGuarded(guard, fmt.Sprintf("(%s < %s && %s < %s)", lo, val, val, hi)), nil
}

func (a *And) jsExpr() (string, error) {
	return jsBinary(a.Left, a.Right, "&&")
}

func (o *Or) jsExpr() (string, error) {
	return jsBinary(o.Left, o.Right, "||")
}

func (n *Not) jsExpr() (string, error) {
	inner, err := n.Expr.jsExpr()
	if err != nil {
		return "", err
	}
	return "(!" + inner + ")", nil
}

func (i *Intersection) jsExpr() (string, error) {
	return "", ErrNotScriptable
}

func jsBinary(left, right Condition, op string) (string, error) {
	l, err := left.jsExpr()
	if err != nil {
		return "", err
	}
	r, err := right.jsExpr()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", l, op, r), nil
}

func jsGuarded(guard, expr string) string {
	if guard == "" {
		return expr
	}
	return "(" + guard + " && " + expr + ")"
}

func jsAllGuards(guards ...string) string {
	var present []string
	for _, g := range guards {
		if g != "" {
			present = append(present, g)
		}
	}
	return strings.Join(present, " && ")
}
