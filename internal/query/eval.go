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
	"regexp"
	"sort"
)

// evalContext carries the item under test and the current binding: one
// chosen value per referenced attribute that the item actually has.
type evalContext struct {
	item    *Item
	binding map[string]string
}

// Match reports whether the item satisfies the condition. Multi-valued
// attributes are handled by iterating the cartesian product of the
// value sets of every referenced, present attribute; the item matches
// as soon as one combination satisfies the condition. every(attr) and
// INTERSECTION sidestep the binding and see full value sets.
func Match(cond Condition, item Item) bool {
	return matchCondition(cond, &item)
}

func matchCondition(cond Condition, item *Item) bool {
	var names []string
	seen := make(map[string]struct{})
	for _, name := range cond.Identifiers() {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := item.Attrs[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ctx := &evalContext{item: item, binding: make(map[string]string, len(names))}
	if len(names) == 0 {
		return cond.eval(ctx)
	}

	values := make([][]string, len(names))
	for i, name := range names {
		values[i] = item.Attrs[name].Values()
	}

	// Odometer over the per-attribute value lists.
	idx := make([]int, len(names))
	for {
		for i, name := range names {
			ctx.binding[name] = values[i][idx[i]]
		}
		if cond.eval(ctx) {
			return true
		}
		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(values[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return false
		}
	}
}

func (l *Literal) resolve(*evalContext) ([]string, bool) {
	return []string{l.Value}, true
}

func (v *ValueList) resolve(*evalContext) ([]string, bool) {
	return v.Values, true
}

func (n *Null) resolve(*evalContext) ([]string, bool) {
	return nil, false
}

func (i *Identifier) resolve(ctx *evalContext) ([]string, bool) {
	v, ok := ctx.binding[i.Name]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

func (e *EveryIdentifier) resolve(ctx *evalContext) ([]string, bool) {
	set, ok := ctx.item.Attrs[e.Name]
	if !ok {
		return nil, false
	}
	return set.Values(), true
}

func (n *ItemName) resolve(ctx *evalContext) ([]string, bool) {
	return []string{ctx.item.Name}, true
}

func (c *Comparison) eval(ctx *evalContext) bool {
	// IS NULL is a presence test on the item itself, not on the
	// binding: an absent attribute is "null".
	switch c.Op {
	case OpIsNull:
		return !operandPresent(c.Left, ctx)
	case OpIsNotNull:
		return operandPresent(c.Left, ctx)
	}
	left, ok := c.Left.resolve(ctx)
	if !ok {
		return false
	}
	right, ok := c.Right.resolve(ctx)
	if !ok {
		return false
	}
	if c.Op == OpIn {
		// Every resolved value must equal some listed literal. With a
		// plain identifier the left side is a single bound value, so
		// this is membership; with every(attr) it is the subset test.
		for _, lv := range left {
			if !containsString(right, lv) {
				return false
			}
		}
		return true
	}
	for _, lv := range left {
		for _, rv := range right {
			if !c.compare(lv, rv) {
				return false
			}
		}
	}
	return true
}

func (c *Comparison) compare(lv, rv string) bool {
	switch c.Op {
	case OpEq:
		return lv == rv
	case OpNotEq:
		return lv != rv
	case OpLess:
		return lv < rv
	case OpLessEq:
		return lv <= rv
	case OpGreater:
		return lv > rv
	case OpGreaterEq:
		return lv >= rv
	case OpLike:
		return c.matchLike(lv, rv)
	}
	return false
}

// matchLike tests lv against the pattern rv, anchored at the start.
// Literal patterns were compiled when the query was parsed; a pattern
// coming from an attribute value is compiled here and matches nothing
// if it is not a valid expression.
func (c *Comparison) matchLike(lv, rv string) bool {
	re := c.likeRe
	if re == nil {
		var err error
		re, err = regexp.Compile("^" + likePattern(rv))
		if err != nil {
			return false
		}
	}
	return re.MatchString(lv)
}

func (b *Between) eval(ctx *evalContext) bool {
	vals, ok := b.Operand.resolve(ctx)
	if !ok {
		return false
	}
	los, ok := b.Lo.resolve(ctx)
	if !ok {
		return false
	}
	his, ok := b.Hi.resolve(ctx)
	if !ok {
		return false
	}
	// Strict bounds on both ends.
	for _, v := range vals {
		for _, lo := range los {
			if !(lo < v) {
				return false
			}
		}
		for _, hi := range his {
			if !(v < hi) {
				return false
			}
		}
	}
	return true
}

func (a *And) eval(ctx *evalContext) bool {
	return a.Left.eval(ctx) && a.Right.eval(ctx)
}

func (o *Or) eval(ctx *evalContext) bool {
	return o.Left.eval(ctx) || o.Right.eval(ctx)
}

func (n *Not) eval(ctx *evalContext) bool {
	return !n.Expr.eval(ctx)
}

// eval of an intersection ignores the surrounding binding: each side
// is matched against the item independently, each with its own product
// iteration. This is what lets INTERSECTION see two different values
// of the same attribute where AND cannot.
func (i *Intersection) eval(ctx *evalContext) bool {
	return matchCondition(i.Left, ctx.item) && matchCondition(i.Right, ctx.item)
}

func operandPresent(op Operand, ctx *evalContext) bool {
	switch v := op.(type) {
	case *Identifier:
		_, ok := ctx.item.Attrs[v.Name]
		return ok
	case *EveryIdentifier:
		_, ok := ctx.item.Attrs[v.Name]
		return ok
	}
	return true
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
