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

// Package drivertest runs the storage contract against a backend. Each
// backend's test file supplies a factory for a fresh, empty store and
// gets the full behavioral suite; remote backends gate the factory on
// an environment variable.
package drivertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

// Factory returns a backend with no data in it. It is called once per
// subtest, so remote backends should wipe their test database here.
type Factory func(t *testing.T) storage.Driver

// Run exercises the storage contract.
func Run(t *testing.T, factory Factory) {
	t.Run("DomainLifecycle", func(t *testing.T) { testDomainLifecycle(t, factory(t)) })
	t.Run("PutGetRoundTrip", func(t *testing.T) { testPutGetRoundTrip(t, factory(t)) })
	t.Run("WritesMaterializeDomains", func(t *testing.T) { testWritesMaterializeDomains(t, factory(t)) })
	t.Run("SetSemantics", func(t *testing.T) { testSetSemantics(t, factory(t)) })
	t.Run("ReplaceAttribute", func(t *testing.T) { testReplaceAttribute(t, factory(t)) })
	t.Run("DeleteErasure", func(t *testing.T) { testDeleteErasure(t, factory(t)) })
	t.Run("DeleteIsIdempotent", func(t *testing.T) { testDeleteIsIdempotent(t, factory(t)) })
	t.Run("DeleteDomainCascades", func(t *testing.T) { testDeleteDomainCascades(t, factory(t)) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, factory(t)) })
	t.Run("Expectations", func(t *testing.T) { testExpectations(t, factory(t)) })
	t.Run("ConditionalPutFlow", func(t *testing.T) { testConditionalPutFlow(t, factory(t)) })
	t.Run("BatchOperations", func(t *testing.T) { testBatchOperations(t, factory(t)) })
	t.Run("Select", func(t *testing.T) { testSelect(t, factory(t)) })
	t.Run("SelectMissingDomain", func(t *testing.T) { testSelectMissingDomain(t, factory(t)) })
	t.Run("DomainMetadata", func(t *testing.T) { testDomainMetadata(t, factory(t)) })
}

func put(t *testing.T, store *storage.Store, owner, domain, item string, attrs map[string][]string) {
	t.Helper()
	err := store.AddAttributes(context.Background(), owner, domain, item, model.AttributesFromLists(attrs))
	require.NoError(t, err)
}

func get(t *testing.T, d storage.Driver, owner, domain, item string) map[string][]string {
	t.Helper()
	attrs, err := d.GetAttributes(context.Background(), owner, domain, item)
	require.NoError(t, err)
	return attrs.Lists()
}

func sel(t *testing.T, d storage.Driver, owner, expr string) []string {
	t.Helper()
	q, err := query.Parse(expr)
	require.NoError(t, err)
	results, err := d.Select(context.Background(), owner, q)
	require.NoError(t, err)
	var names []string
	for _, item := range results {
		names = append(names, item.Name)
	}
	return names
}

func testDomainLifecycle(t *testing.T, d storage.Driver) {
	ctx := context.Background()

	domains, err := d.ListDomains(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, domains)

	require.NoError(t, d.CreateDomain(ctx, "owner", "zebra"))
	require.NoError(t, d.CreateDomain(ctx, "owner", "apple"))
	require.NoError(t, d.CreateDomain(ctx, "owner", "apple"))

	domains, err = d.ListDomains(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, domains)

	require.NoError(t, d.DeleteDomain(ctx, "owner", "apple"))
	require.NoError(t, d.DeleteDomain(ctx, "owner", "never-existed"))

	domains, err = d.ListDomains(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra"}, domains)
}

func testPutGetRoundTrip(t *testing.T, d storage.Driver) {
	store := storage.NewStore(d)
	put(t, store, "owner", "domain", "item", map[string][]string{
		"color": {"red", "blue"},
		"size":  {"small"},
	})

	assert.Equal(t, map[string][]string{
		"color": {"blue", "red"},
		"size":  {"small"},
	}, get(t, d, "owner", "domain", "item"))

	assert.Empty(t, get(t, d, "owner", "domain", "no-such-item"))
	assert.Empty(t, get(t, d, "owner", "no-such-domain", "item"))
}

func testWritesMaterializeDomains(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	require.NoError(t, d.AddAttributeValue(ctx, "owner", "implicit", "item", "a", "1"))

	domains, err := d.ListDomains(ctx, "owner")
	require.NoError(t, err)
	assert.Contains(t, domains, "implicit")
}

func testSetSemantics(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	require.NoError(t, d.AddAttributeValue(ctx, "owner", "domain", "item", "a", "v"))
	require.NoError(t, d.AddAttributeValue(ctx, "owner", "domain", "item", "a", "v"))
	require.NoError(t, d.AddAttributeValue(ctx, "owner", "domain", "item", "a", "w"))

	assert.Equal(t, map[string][]string{"a": {"v", "w"}}, get(t, d, "owner", "domain", "item"))
}

func testReplaceAttribute(t *testing.T, d storage.Driver) {
	store := storage.NewStore(d)
	put(t, store, "owner", "domain", "item", map[string][]string{
		"a": {"1", "2"},
		"b": {"kept"},
	})

	err := store.ReplaceAttribute(context.Background(), "owner", "domain", "item", "a", model.NewValueSet("3"))
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"a": {"3"},
		"b": {"kept"},
	}, get(t, d, "owner", "domain", "item"))
}

func testDeleteErasure(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)
	put(t, store, "owner", "domain", "item", map[string][]string{
		"a": {"1", "2"},
		"b": {"x"},
	})

	// Dropping one value keeps the attribute.
	require.NoError(t, d.DeleteAttributeValue(ctx, "owner", "domain", "item", "a", "1"))
	assert.Equal(t, map[string][]string{"a": {"2"}, "b": {"x"}}, get(t, d, "owner", "domain", "item"))

	// Dropping the last value drops the attribute.
	require.NoError(t, d.DeleteAttributeValue(ctx, "owner", "domain", "item", "a", "2"))
	assert.Equal(t, map[string][]string{"b": {"x"}}, get(t, d, "owner", "domain", "item"))

	// Dropping the last attribute drops the item.
	require.NoError(t, d.DeleteAttributeAll(ctx, "owner", "domain", "item", "b"))
	assert.Empty(t, get(t, d, "owner", "domain", "item"))
	assert.Empty(t, sel(t, d, "owner", "select * from domain"))
}

func testDeleteIsIdempotent(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	require.NoError(t, d.AddAttributeValue(ctx, "owner", "domain", "item", "a", "1"))

	require.NoError(t, d.DeleteAttributeValue(ctx, "owner", "domain", "item", "a", "no-such-value"))
	require.NoError(t, d.DeleteAttributeValue(ctx, "owner", "domain", "item", "no-such-attr", "1"))
	require.NoError(t, d.DeleteAttributeAll(ctx, "owner", "domain", "item", "no-such-attr"))
	require.NoError(t, d.DeleteAttributeValue(ctx, "owner", "domain", "no-such-item", "a", "1"))
	require.NoError(t, d.DeleteAttributeAll(ctx, "owner", "no-such-domain", "item", "a"))

	assert.Equal(t, map[string][]string{"a": {"1"}}, get(t, d, "owner", "domain", "item"))
}

func testDeleteDomainCascades(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)
	put(t, store, "owner", "domain", "item1", map[string][]string{"a": {"1"}})
	put(t, store, "owner", "domain", "item2", map[string][]string{"b": {"2"}})

	require.NoError(t, d.DeleteDomain(ctx, "owner", "domain"))

	domains, err := d.ListDomains(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, domains)
	assert.Empty(t, get(t, d, "owner", "domain", "item1"))

	// Re-creating the domain does not resurrect old data.
	require.NoError(t, d.CreateDomain(ctx, "owner", "domain"))
	assert.Empty(t, get(t, d, "owner", "domain", "item2"))
	assert.Empty(t, sel(t, d, "owner", "select * from domain"))
}

func testOwnerIsolation(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)
	put(t, store, "alice", "domain", "item", map[string][]string{"a": {"1"}})

	domains, err := d.ListDomains(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, domains)
	assert.Empty(t, get(t, d, "bob", "domain", "item"))
	assert.Empty(t, sel(t, d, "bob", "select * from domain"))

	// Same names on another owner stay independent.
	put(t, store, "bob", "domain", "item", map[string][]string{"a": {"2"}})
	require.NoError(t, d.DeleteDomain(ctx, "bob", "domain"))
	assert.Equal(t, map[string][]string{"a": {"1"}}, get(t, d, "alice", "domain", "item"))
}

func testExpectations(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)
	put(t, store, "owner", "domain", "item", map[string][]string{
		"single": {"v1"},
		"multi":  {"v1", "v2"},
	})

	assert.NoError(t, d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedValue("single", "v1")))
	assert.NoError(t, d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedExists("single", true)))
	assert.NoError(t, d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedExists("missing", false)))

	err := d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedValue("single", "v2"))
	requireKind(t, err, "ConditionalCheckFailed")

	err = d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedValue("missing", "v1"))
	requireKind(t, err, "AttributeDoesNotExist")

	err = d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedValue("multi", "v1"))
	requireKind(t, err, "MultiValuedAttribute")

	err = d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedExists("single", false))
	requireKind(t, err, "ConditionalCheckFailed")

	err = d.CheckExpectation(ctx, "owner", "domain", "item", model.ExpectedExists("missing", true))
	requireKind(t, err, "ConditionalCheckFailed")
}

func testConditionalPutFlow(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)

	err := store.PutAttributes(ctx, "owner", "domain", "item",
		model.Updates{"a": model.NewValueSet("v1")}, nil, nil)
	require.NoError(t, err)

	// Guarded write with the wrong expected value changes nothing.
	err = store.PutAttributes(ctx, "owner", "domain", "item",
		model.Updates{"a": model.NewValueSet("v2")}, nil,
		[]model.Expectation{model.ExpectedValue("a", "v2")})
	requireKind(t, err, "ConditionalCheckFailed")
	assert.Equal(t, map[string][]string{"a": {"v1"}}, get(t, d, "owner", "domain", "item"))

	// Guarded write with a holding expectation goes through.
	err = store.PutAttributes(ctx, "owner", "domain", "item",
		model.Updates{"a": model.NewValueSet("v2")}, nil,
		[]model.Expectation{model.ExpectedExists("a", true)})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"a": {"v1", "v2"}}, get(t, d, "owner", "domain", "item"))

	// Replacement under a must-not-exist guard.
	err = store.PutAttributes(ctx, "owner", "domain", "item",
		nil, model.Updates{"b": model.NewValueSet("w")},
		[]model.Expectation{model.ExpectedExists("b", false)})
	require.NoError(t, err)
	err = store.PutAttributes(ctx, "owner", "domain", "item",
		nil, model.Updates{"b": model.NewValueSet("x")},
		[]model.Expectation{model.ExpectedExists("b", false)})
	requireKind(t, err, "ConditionalCheckFailed")
	assert.Equal(t, []string{"w"}, get(t, d, "owner", "domain", "item")["b"])
}

func testBatchOperations(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)

	err := store.BatchPutAttributes(ctx, "owner", "domain",
		model.BatchUpdates{
			"item1": model.Updates{"attr1": model.NewValueSet("val1", "val2")},
			"item2": model.Updates{"attr2": model.NewValueSet("val3")},
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"attr1": {"val1", "val2"}}, get(t, d, "owner", "domain", "item1"))
	assert.Equal(t, map[string][]string{"attr2": {"val3"}}, get(t, d, "owner", "domain", "item2"))

	// item1 loses one value, item2 is deleted whole.
	err = store.BatchDeleteAttributes(ctx, "owner", "domain", model.BatchDeletions{
		"item1": model.Deletions{"attr1": model.DeleteValues("val2")},
		"item2": nil,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"attr1": {"val1"}}, get(t, d, "owner", "domain", "item1"))
	assert.Empty(t, get(t, d, "owner", "domain", "item2"))
}

func testSelect(t *testing.T, d storage.Driver) {
	store := storage.NewStore(d)
	put(t, store, "owner", "books", "item1", map[string][]string{
		"Keyword": {"Book", "Paperback"},
		"Rating":  {"*****", "5 stars"},
		"Year":    {"1959"},
	})
	put(t, store, "owner", "books", "item2", map[string][]string{
		"Keyword": {"Book"},
		"Rating":  {"****"},
		"Year":    {"1934"},
	})
	put(t, store, "owner", "books", "item3", map[string][]string{
		"Keyword": {"Book", "Hardcover"},
		"Rating":  {"4 stars", "****"},
		"Year":    {"1979"},
	})

	assert.Equal(t, []string{"item1", "item2", "item3"}, sel(t, d, "owner", "select * from books"))
	assert.Equal(t, []string{"item2"}, sel(t, d, "owner", "select * from books where Year = '1934'"))
	assert.Equal(t, []string{"item1", "item3"}, sel(t, d, "owner", "select * from books where Year > '1950'"))
	assert.Equal(t, []string{"item1", "item2", "item3"}, sel(t, d, "owner", "select * from books where Rating like '****%'"))
	assert.Equal(t, []string{"item3"}, sel(t, d, "owner", "select * from books where Keyword = 'Book' intersection Keyword = 'Hardcover'"))
	assert.Equal(t, []string{"item1", "item2"}, sel(t, d, "owner", "select * from books where every(Keyword) in ('Book', 'Paperback')"))
	assert.Equal(t, []string{"item1"}, sel(t, d, "owner", "select * from books where itemName() = 'item1'"))
	assert.Equal(t, []string{"item3", "item1"}, sel(t, d, "owner", "select * from books where Year > '1940' order by Year desc"))
	assert.Equal(t, []string{"item1", "item2"}, sel(t, d, "owner", "select * from books limit 2"))

	// Projection keeps only requested attributes and count(*) answers
	// with the synthetic item.
	q, err := query.Parse("select Year from books where Rating = '****'")
	require.NoError(t, err)
	results, err := d.Select(context.Background(), "owner", q)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"Year"}, results[0].Attrs.Names())

	q, err = query.Parse("select count(*) from books where Keyword = 'Book'")
	require.NoError(t, err)
	results, err = d.Select(context.Background(), "owner", q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Domain", results[0].Name)
	assert.Equal(t, []string{"3"}, results[0].Attrs["count"].Values())

	// Sorting by an unreferenced key is an invalid sort expression.
	q, err = query.Parse("select * from books order by Year")
	require.NoError(t, err)
	_, err = d.Select(context.Background(), "owner", q)
	requireKind(t, err, "InvalidSortExpression")
}

func testSelectMissingDomain(t *testing.T, d storage.Driver) {
	assert.Empty(t, sel(t, d, "owner", "select * from nowhere"))
	assert.Empty(t, sel(t, d, "owner", "select * from nowhere where a = 'b'"))
}

func testDomainMetadata(t *testing.T, d storage.Driver) {
	ctx := context.Background()
	store := storage.NewStore(d)

	require.NoError(t, d.CreateDomain(ctx, "owner", "empty"))
	md, err := d.DomainMetadata(ctx, "owner", "empty")
	require.NoError(t, err)
	assert.Zero(t, md.ItemCount)
	assert.Zero(t, md.AttributeValueCount)
	assert.NotZero(t, md.Timestamp)

	put(t, store, "owner", "stats", "ab", map[string][]string{
		"attr1": {"x", "yy"},
		"attr2": {"zzz"},
	})
	put(t, store, "owner", "stats", "cdef", map[string][]string{
		"attr1": {"x"},
	})

	md, err = d.DomainMetadata(ctx, "owner", "stats")
	require.NoError(t, err)
	assert.Equal(t, 2, md.ItemCount)
	assert.Equal(t, len("ab")+len("cdef"), md.ItemNamesSizeBytes)
	assert.Equal(t, 2, md.AttributeNameCount)
	assert.Equal(t, len("attr1")+len("attr2"), md.AttributeNamesSizeBytes)
	assert.Equal(t, 4, md.AttributeValueCount)
	assert.Equal(t, len("x")+len("yy")+len("zzz")+len("x"), md.AttributeValuesSizeBytes)
}

func requireKind(t *testing.T, err error, kind string) {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := model.AsError(err)
	require.True(t, ok, "expected an API error, got %v", err)
	assert.Equal(t, kind, apiErr.Kind)
}
