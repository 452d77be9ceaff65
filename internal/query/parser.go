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
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/basicdb/basicdb-go/internal/model"
)

// selectLexer tokenizes the select language. Multi-character operators
// must be listed before Punct so that <= lexes as one token, not two.
// Keywords are plain Ident tokens matched case-insensitively by the
// grammar; nothing is reserved.
var selectLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'[^']*'`},
	{Name: "BacktickIdent", Pattern: "`[^`]*`"},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "EqEq", Pattern: `==`},
	{Name: "NotEq", Pattern: `!=|<>`},
	{Name: "LtEq", Pattern: `<=`},
	{Name: "GtEq", Pattern: `>=`},
	{Name: "Punct", Pattern: `[(),*=<>]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Grammar tree. These structs only mirror the surface syntax; Parse
// lowers them into the typed AST and applies the semantic checks
// (identifier-vs-literal operands, boolean roots, known functions).
//
// Precedence in the where expression, loosest binding first:
// INTERSECTION, AND, OR, then BETWEEN and the comparison operators,
// then unary NOT. OR binding tighter than AND is inherited behavior
// and deliberately kept.
type selectAST struct {
	Columns columnsAST  `parser:"'SELECT' @@"`
	Table   string      `parser:"'FROM' @(Ident | BacktickIdent)"`
	Where   *whereAST   `parser:"('WHERE' @@)?"`
	OrderBy *orderByAST `parser:"('ORDER' 'BY' @@)?"`
	Limit   *int        `parser:"('LIMIT' @Number)?"`
}

type columnsAST struct {
	Star  bool        `parser:"@'*'"`
	Count bool        `parser:"| @('COUNT' '(' '*' ')')"`
	Cols  []columnAST `parser:"| @@ (',' @@)*"`
}

type columnAST struct {
	ItemName bool    `parser:"@('ITEMNAME' '(' ')')"`
	Name     *string `parser:"| @(Ident | BacktickIdent)"`
}

type orderByAST struct {
	ItemName bool    `parser:"@('ITEMNAME' '(' ')')"`
	Key      *string `parser:"| @(Ident | BacktickIdent)"`
	Desc     bool    `parser:"('ASC' | @'DESC')?"`
}

type whereAST struct {
	First andAST   `parser:"@@"`
	Rest  []andAST `parser:"('INTERSECTION' @@)*"`
}

type andAST struct {
	First orAST   `parser:"@@"`
	Rest  []orAST `parser:"('AND' @@)*"`
}

type orAST struct {
	First unitAST   `parser:"@@"`
	Rest  []unitAST `parser:"('OR' @@)*"`
}

type unitAST struct {
	Not   *unitAST  `parser:"'NOT' @@"`
	Paren *whereAST `parser:"| '(' @@ ')'"`
	Cmp   *cmpAST   `parser:"| @@"`
}

type cmpAST struct {
	Left operandAST `parser:"@@"`
	Tail *tailAST   `parser:"@@?"`
}

type tailAST struct {
	Between *betweenAST `parser:"@@"`
	Is      *isAST      `parser:"| @@"`
	In      *inAST      `parser:"| @@"`
	Binary  *binaryAST  `parser:"| @@"`
}

type betweenAST struct {
	Lo operandAST `parser:"'BETWEEN' @@"`
	Hi operandAST `parser:"'AND' @@"`
}

type isAST struct {
	Not bool `parser:"'IS' @'NOT'? 'NULL'"`
}

type inAST struct {
	Values []string `parser:"'IN' '(' @String (',' @String)* ')'"`
}

type binaryAST struct {
	Op    string     `parser:"@('=' | EqEq | NotEq | LtEq | GtEq | '<' | '>' | 'LIKE')"`
	Right operandAST `parser:"@@"`
}

type operandAST struct {
	Every    *string  `parser:"'EVERY' '(' @(Ident | BacktickIdent) ')'"`
	ItemName bool     `parser:"| @('ITEMNAME' '(' ')')"`
	Call     *callAST `parser:"| @@"`
	Literal  *string  `parser:"| @String"`
	Null     bool     `parser:"| @'NULL'"`
	Ident    *string  `parser:"| @(Ident | BacktickIdent)"`
}

// callAST catches function-call syntax with names other than every and
// itemName so they parse and then fail validation instead of producing
// an opaque syntax error.
type callAST struct {
	Name string   `parser:"@Ident '('"`
	Args []string `parser:"(@(Ident | BacktickIdent | String | Number) (',' @(Ident | BacktickIdent | String | Number))*)? ')'"`
}

var selectParser = participle.MustBuild[selectAST](
	participle.Lexer(selectLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
	participle.CaseInsensitive("Ident"),
)

// Parse turns a select expression into a Query. Any lexical, syntactic
// or semantic problem comes back as the InvalidQueryExpression API
// error.
func Parse(input string) (*Query, error) {
	stmt, err := selectParser.ParseString("", input)
	if err != nil {
		return nil, model.NewInvalidQueryExpression()
	}
	return buildQuery(stmt)
}

func buildQuery(stmt *selectAST) (*Query, error) {
	q := &Query{
		Domain: unquoteIdent(stmt.Table),
		All:    stmt.Columns.Star,
		Count:  stmt.Columns.Count,
	}
	for _, col := range stmt.Columns.Cols {
		if col.ItemName {
			q.Columns = append(q.Columns, "itemName()")
			continue
		}
		q.Columns = append(q.Columns, unquoteIdent(*col.Name))
	}
	if stmt.Where != nil {
		cond, err := buildWhere(stmt.Where)
		if err != nil {
			return nil, err
		}
		q.Where = cond
	}
	if stmt.OrderBy != nil {
		ob := &OrderBy{Descending: stmt.OrderBy.Desc}
		if stmt.OrderBy.ItemName {
			ob.ByItemName = true
		} else {
			ob.Key = unquoteIdent(*stmt.OrderBy.Key)
		}
		q.OrderBy = ob
	}
	q.Limit = stmt.Limit
	return q, nil
}

func buildWhere(w *whereAST) (Condition, error) {
	left, err := buildAnd(&w.First)
	if err != nil {
		return nil, err
	}
	for i := range w.Rest {
		right, err := buildAnd(&w.Rest[i])
		if err != nil {
			return nil, err
		}
		left = &Intersection{Left: left, Right: right}
	}
	return left, nil
}

func buildAnd(a *andAST) (Condition, error) {
	left, err := buildOr(&a.First)
	if err != nil {
		return nil, err
	}
	for i := range a.Rest {
		right, err := buildOr(&a.Rest[i])
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func buildOr(o *orAST) (Condition, error) {
	left, err := buildUnit(&o.First)
	if err != nil {
		return nil, err
	}
	for i := range o.Rest {
		right, err := buildUnit(&o.Rest[i])
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func buildUnit(u *unitAST) (Condition, error) {
	switch {
	case u.Not != nil:
		inner, err := buildUnit(u.Not)
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	case u.Paren != nil:
		return buildWhere(u.Paren)
	default:
		return buildComparison(u.Cmp)
	}
}

func buildComparison(c *cmpAST) (Condition, error) {
	left, err := buildOperand(&c.Left)
	if err != nil {
		return nil, err
	}
	// A where expression must reduce to a boolean; a bare operand with
	// no operator is not one.
	if c.Tail == nil {
		return nil, model.NewInvalidQueryExpression()
	}
	switch {
	case c.Tail.Between != nil:
		lo, err := buildOperand(&c.Tail.Between.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := buildOperand(&c.Tail.Between.Hi)
		if err != nil {
			return nil, err
		}
		if !isIdentOperand(left) || !isLiteralOperand(lo) || !isLiteralOperand(hi) {
			return nil, model.NewInvalidQueryExpression()
		}
		return &Between{Operand: left, Lo: lo, Hi: hi}, nil
	case c.Tail.Is != nil:
		if !isIdentOperand(left) {
			return nil, model.NewInvalidQueryExpression()
		}
		op := OpIsNull
		if c.Tail.Is.Not {
			op = OpIsNotNull
		}
		return &Comparison{Op: op, Left: left, Right: &Null{}}, nil
	case c.Tail.In != nil:
		if !isIdentOperand(left) {
			return nil, model.NewInvalidQueryExpression()
		}
		list := &ValueList{}
		for _, raw := range c.Tail.In.Values {
			list.Values = append(list.Values, unquoteString(raw))
		}
		return &Comparison{Op: OpIn, Left: left, Right: list}, nil
	default:
		return buildBinary(left, c.Tail.Binary)
	}
}

func buildBinary(left Operand, b *binaryAST) (Condition, error) {
	right, err := buildOperand(&b.Right)
	if err != nil {
		return nil, err
	}
	// Exactly one side names an attribute (or itemName()) and the other
	// is a string literal; literal-vs-literal and ident-vs-ident are
	// rejected.
	identLeft, identRight := isIdentOperand(left), isIdentOperand(right)
	litLeft, litRight := isLiteralOperand(left), isLiteralOperand(right)
	if !(identLeft && litRight) && !(litLeft && identRight) {
		return nil, model.NewInvalidQueryExpression()
	}
	cmp := &Comparison{Left: left, Right: right}
	switch strings.ToUpper(b.Op) {
	case "=", "==":
		cmp.Op = OpEq
	case "!=", "<>":
		cmp.Op = OpNotEq
	case "<":
		cmp.Op = OpLess
	case "<=":
		cmp.Op = OpLessEq
	case ">":
		cmp.Op = OpGreater
	case ">=":
		cmp.Op = OpGreaterEq
	case "LIKE":
		cmp.Op = OpLike
		if lit, ok := right.(*Literal); ok {
			re, err := regexp.Compile("^" + likePattern(lit.Value))
			if err != nil {
				return nil, model.NewInvalidQueryExpression()
			}
			cmp.likeRe = re
		}
	}
	return cmp, nil
}

func buildOperand(o *operandAST) (Operand, error) {
	switch {
	case o.Every != nil:
		return &EveryIdentifier{Name: unquoteIdent(*o.Every)}, nil
	case o.ItemName:
		return &ItemName{}, nil
	case o.Call != nil:
		// every() and itemName() are the only functions in the where
		// grammar; count(*) lives in the projection slot.
		return nil, model.NewInvalidQueryExpression()
	case o.Literal != nil:
		return &Literal{Value: unquoteString(*o.Literal)}, nil
	case o.Null:
		return &Null{}, nil
	default:
		return &Identifier{Name: unquoteIdent(*o.Ident)}, nil
	}
}

func isIdentOperand(op Operand) bool {
	switch op.(type) {
	case *Identifier, *EveryIdentifier, *ItemName:
		return true
	}
	return false
}

func isLiteralOperand(op Operand) bool {
	_, ok := op.(*Literal)
	return ok
}

func unquoteString(s string) string {
	return s[1 : len(s)-1]
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}

// likePattern translates a LIKE pattern into a regular expression
// fragment: % matches any run of characters, _ a single character, *
// is an escaped literal. Everything else passes through untouched, so
// regex metacharacters in patterns stay live.
func likePattern(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		case '*':
			b.WriteString(`\*`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
