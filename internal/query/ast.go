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

// Package query implements the BasicDB select language: a participle
// grammar, a typed AST, an evaluator over multi-valued items, and the
// driver that turns matches into ordered, limited, projected results.
package query

import (
	"regexp"

	"github.com/basicdb/basicdb-go/internal/model"
)

// Node is anything that appears in a parsed where expression.
type Node interface {
	// Identifiers lists every attribute name the node references,
	// including every() references. Duplicates allowed.
	Identifiers() []string
}

// Operand resolves to a set of candidate values under an evaluation
// context. The variant set is closed; resolution is internal to the
// package.
type Operand interface {
	Node
	// resolve returns the values the operand stands for under the
	// context. ok is false when the operand cannot be resolved, e.g.
	// an identifier naming an attribute the item does not have.
	resolve(ctx *evalContext) (values []string, ok bool)
	jsExpr() (string, error)
}

// Condition is a boolean where-expression node.
type Condition interface {
	Node
	eval(ctx *evalContext) bool
	jsExpr() (string, error)
}

// Literal is a single-quoted string constant.
type Literal struct {
	Value string
}

// ValueList is a parenthesized list of string constants, the right
// side of IN.
type ValueList struct {
	Values []string
}

// Null is the NULL keyword, valid only on the right of IS / IS NOT.
type Null struct{}

// Identifier references one attribute; under a candidate binding it
// resolves to the single bound value.
type Identifier struct {
	Name string
}

// EveryIdentifier is every(attr): it resolves to the attribute's full
// value set, turning the enclosing comparison universal.
type EveryIdentifier struct {
	Name string
}

// ItemName is itemName(): it resolves to the item's name.
type ItemName struct{}

// CompareOp enumerates the binary comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNotEq
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpLike
	OpIn
	OpIsNull
	OpIsNotNull
)

// Comparison applies one operator to two operands. The test holds only
// if it holds for every resolved left value against the right side
// (IN demands membership, everything else pairwise truth).
type Comparison struct {
	Op    CompareOp
	Left  Operand
	Right Operand

	// likeRe is the pattern compiled at build time when the right
	// side of LIKE is a literal.
	likeRe *regexp.Regexp
}

// Between is the ternary strict range test: lo < value < hi.
type Between struct {
	Operand Operand
	Lo      Operand
	Hi      Operand
}

// And requires both sides under the same candidate binding.
type And struct {
	Left  Condition
	Right Condition
}

// Or requires either side under the same candidate binding.
type Or struct {
	Left  Condition
	Right Condition
}

// Not negates its operand condition.
type Not struct {
	Expr Condition
}

// Intersection requires each side to match the item independently,
// each with its own candidate bindings.
type Intersection struct {
	Left  Condition
	Right Condition
}

func (l *Literal) Identifiers() []string         { return nil }
func (v *ValueList) Identifiers() []string       { return nil }
func (n *Null) Identifiers() []string            { return nil }
func (i *Identifier) Identifiers() []string      { return []string{i.Name} }
func (e *EveryIdentifier) Identifiers() []string { return []string{e.Name} }
func (n *ItemName) Identifiers() []string        { return nil }

func (c *Comparison) Identifiers() []string {
	return append(c.Left.Identifiers(), c.Right.Identifiers()...)
}

func (b *Between) Identifiers() []string {
	ids := append(b.Operand.Identifiers(), b.Lo.Identifiers()...)
	return append(ids, b.Hi.Identifiers()...)
}

func (a *And) Identifiers() []string {
	return append(a.Left.Identifiers(), a.Right.Identifiers()...)
}

func (o *Or) Identifiers() []string {
	return append(o.Left.Identifiers(), o.Right.Identifiers()...)
}

func (n *Not) Identifiers() []string { return n.Expr.Identifiers() }

func (i *Intersection) Identifiers() []string {
	return append(i.Left.Identifiers(), i.Right.Identifiers()...)
}

// OrderBy is the parsed ORDER BY clause.
type OrderBy struct {
	Key        string
	ByItemName bool
	Descending bool
}

// Query is a parsed select statement.
type Query struct {
	Domain  string
	All     bool
	Count   bool
	Columns []string
	Where   Condition
	OrderBy *OrderBy
	Limit   *int
}

// WhereIdentifiers returns the unique attribute names referenced by
// the where expression, or nil if there is none.
func (q *Query) WhereIdentifiers() []string {
	if q.Where == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, name := range q.Where.Identifiers() {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Item is one stored item handed to the evaluator: its name and full
// attribute map.
type Item struct {
	Name  string
	Attrs model.Attributes
}

// Results is the ordered item list a select produces.
type Results []Item
