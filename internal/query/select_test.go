package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/model"
)

// mediaCorpus is the sample data set most select tests run against:
// six media items with multi-valued Keyword and Rating attributes,
// already in natural (sorted item name) order.
func mediaCorpus() []Item {
	build := func(name string, attrs map[string][]string) Item {
		return Item{Name: name, Attrs: model.AttributesFromLists(attrs)}
	}
	return []Item{
		build("0385333498", map[string][]string{
			"Title":   {"The Sirens of Titan"},
			"Author":  {"Kurt Vonnegut"},
			"Year":    {"1959"},
			"Pages":   {"00336"},
			"Keyword": {"Book", "Paperback"},
			"Rating":  {"*****", "5 stars", "Excellent"},
		}),
		build("0802131786", map[string][]string{
			"Title":   {"Tropic of Cancer"},
			"Author":  {"Henry Miller"},
			"Year":    {"1934"},
			"Pages":   {"00318"},
			"Keyword": {"Book"},
			"Rating":  {"****"},
		}),
		build("1579124585", map[string][]string{
			"Title":   {"The Right Stuff"},
			"Author":  {"Tom Wolfe"},
			"Year":    {"1979"},
			"Pages":   {"00304"},
			"Keyword": {"Book", "Hardcover", "American"},
			"Rating":  {"4 stars", "****"},
		}),
		build("B00005JPLW", map[string][]string{
			"Title":   {"300"},
			"Author":  {"Zack Snyder"},
			"Year":    {"2007"},
			"Keyword": {"DVD", "Action", "Frank Miller"},
			"Rating":  {"***", "3 stars", "Not bad"},
		}),
		build("B000SF3NGK", map[string][]string{
			"Title":  {"Heaven's Gonna Burn Your Eyes"},
			"Author": {"Thievery Corporation"},
			"Year":   {"2002"},
			"Rating": {"*****"},
		}),
		build("B000T9886K", map[string][]string{
			"Title":   {"In Between"},
			"Author":  {"Paul Van Dyk"},
			"Year":    {"2007"},
			"Keyword": {"CD", "Trance"},
			"Rating":  {"4 stars"},
		}),
	}
}

func resultNames(results Results) []string {
	var names []string
	for _, item := range results {
		names = append(names, item.Name)
	}
	return names
}

func TestExecuteFiltering(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "no where returns everything",
			query: "select * from mydomain",
			want:  []string{"0385333498", "0802131786", "1579124585", "B00005JPLW", "B000SF3NGK", "B000T9886K"},
		},
		{
			name:  "single title",
			query: "select * from mydomain where Title = 'The Right Stuff'",
			want:  []string{"1579124585"},
		},
		{
			name:  "year range with and",
			query: "select * from mydomain where Year > '1975' and Year < '2008'",
			want:  []string{"1579124585", "B00005JPLW", "B000SF3NGK", "B000T9886K"},
		},
		{
			name:  "year range with between",
			query: "select * from mydomain where Year between '1975' and '2008'",
			want:  []string{"1579124585", "B00005JPLW", "B000SF3NGK", "B000T9886K"},
		},
		{
			name:  "rating prefix like",
			query: "select * from mydomain where Rating like '****%'",
			want:  []string{"0385333498", "0802131786", "1579124585", "B000SF3NGK"},
		},
		{
			name:  "pages below bound",
			query: "select * from mydomain where Pages < '00320'",
			want:  []string{"0802131786", "1579124585"},
		},
		{
			name:  "disjunction of ratings",
			query: "select * from mydomain where Rating = '4 stars' or Rating = '****'",
			want:  []string{"0802131786", "1579124585", "B000T9886K"},
		},
		{
			name:  "and on one keyword binding never matches two",
			query: "select * from mydomain where Keyword = 'Book' and Keyword = 'Hardcover'",
			want:  nil,
		},
		{
			name:  "intersection matches across keyword values",
			query: "select * from mydomain where Keyword = 'Book' intersection Keyword = 'Hardcover'",
			want:  []string{"1579124585"},
		},
		{
			name:  "every keyword subset",
			query: "select * from mydomain where every(Keyword) in ('Book', 'Paperback')",
			want:  []string{"0385333498", "0802131786"},
		},
		{
			name:  "every rating prefix",
			query: "select * from mydomain where every(Rating) like '****%'",
			want:  []string{"0802131786", "B000SF3NGK"},
		},
		{
			name:  "is null finds items without the attribute",
			query: "select * from mydomain where Keyword is null",
			want:  []string{"B000SF3NGK"},
		},
		{
			name:  "is not null finds items with the attribute",
			query: "select * from mydomain where Keyword is not null",
			want:  []string{"0385333498", "0802131786", "1579124585", "B00005JPLW", "B000T9886K"},
		},
		{
			name:  "item name prefix",
			query: "select * from mydomain where itemName() like 'B000%'",
			want:  []string{"B00005JPLW", "B000SF3NGK", "B000T9886K"},
		},
		{
			name:  "year 2007 either way",
			query: "select * from mydomain where (Year > '1950' and Year < '1960') or Year like '193%' or Year = '2007'",
			want:  []string{"0385333498", "0802131786", "B00005JPLW", "B000T9886K"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.query)
			require.NoError(t, err)
			results, err := Execute(q, mediaCorpus())
			require.NoError(t, err)
			assert.Equal(t, tc.want, resultNames(results))
		})
	}
}

func TestExecuteOrderBy(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "ascending by year",
			query: "select * from mydomain where Year > '1950' order by Year",
			want:  []string{"0385333498", "1579124585", "B000SF3NGK", "B00005JPLW", "B000T9886K"},
		},
		{
			name:  "descending by year with limit",
			query: "select * from mydomain where Year > '1950' order by Year desc limit 2",
			want:  []string{"B000T9886K", "B00005JPLW"},
		},
		{
			name:  "ascending by item name",
			query: "select * from mydomain order by itemName()",
			want:  []string{"0385333498", "0802131786", "1579124585", "B00005JPLW", "B000SF3NGK", "B000T9886K"},
		},
		{
			name:  "descending by item name",
			query: "select * from mydomain order by itemName() desc",
			want:  []string{"B000T9886K", "B000SF3NGK", "B00005JPLW", "1579124585", "0802131786", "0385333498"},
		},
		{
			name:  "limit after ordering",
			query: "select * from mydomain where Year > '1950' order by Year limit 2",
			want:  []string{"0385333498", "1579124585"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.query)
			require.NoError(t, err)
			results, err := Execute(q, mediaCorpus())
			require.NoError(t, err)
			assert.Equal(t, tc.want, resultNames(results))
		})
	}
}

func TestExecuteOrderByUnreferencedKeyFails(t *testing.T) {
	testCases := []struct {
		name  string
		query string
	}{
		{name: "no where clause", query: "select * from mydomain order by Year"},
		{name: "key not in predicates", query: "select * from mydomain where Rating = '*****' order by Year"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.query)
			require.NoError(t, err)
			results, err := Execute(q, mediaCorpus())
			require.Error(t, err)
			assert.Nil(t, results)
			apiErr, ok := model.AsError(err)
			require.True(t, ok)
			assert.Equal(t, "InvalidSortExpression", apiErr.Kind)
			assert.Equal(t, 400, apiErr.Status)
		})
	}
}

func TestExecuteOrderByMultiValuedKeyDeduplicates(t *testing.T) {
	items := []Item{
		{Name: "x", Attrs: model.AttributesFromLists(map[string][]string{"k": {"a", "z"}})},
		{Name: "y", Attrs: model.AttributesFromLists(map[string][]string{"k": {"b"}})},
	}

	q, err := Parse("select * from d where k > '0' order by k")
	require.NoError(t, err)
	results, err := Execute(q, items)
	require.NoError(t, err)
	// x sorts first on "a" and is not repeated for "z".
	assert.Equal(t, []string{"x", "y"}, resultNames(results))

	q, err = Parse("select * from d where k > '0' order by k desc")
	require.NoError(t, err)
	results, err = Execute(q, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, resultNames(results))
}

func TestExecuteOrderByDropsItemsWithoutKey(t *testing.T) {
	items := []Item{
		{Name: "x", Attrs: model.AttributesFromLists(map[string][]string{"k": {"a"}, "j": {"1"}})},
		{Name: "y", Attrs: model.AttributesFromLists(map[string][]string{"j": {"1"}})},
	}

	q, err := Parse("select * from d where j = '1' or k = 'a' order by k")
	require.NoError(t, err)
	results, err := Execute(q, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, resultNames(results))
}

func TestExecuteLimitWithoutOrder(t *testing.T) {
	q, err := Parse("select * from mydomain limit 2")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)
	assert.Equal(t, []string{"0385333498", "0802131786"}, resultNames(results))
}

func TestExecuteCount(t *testing.T) {
	q, err := Parse("select count(*) from mydomain where Rating = '*****'")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Domain", results[0].Name)
	assert.Equal(t, []string{"2"}, results[0].Attrs["count"].Values())
}

func TestExecuteCountAppliesLimitFirst(t *testing.T) {
	q, err := Parse("select count(*) from mydomain where Year > '1950' limit 3")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"3"}, results[0].Attrs["count"].Values())
}

func TestExecuteCountOnEmptyDomain(t *testing.T) {
	q, err := Parse("select count(*) from mydomain")
	require.NoError(t, err)
	results, err := Execute(q, nil)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"0"}, results[0].Attrs["count"].Values())
}

func TestExecuteProjection(t *testing.T) {
	q, err := Parse("select Title, Author from mydomain where Year = '2007'")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"B00005JPLW", "B000T9886K"}, resultNames(results))
	for _, item := range results {
		assert.ElementsMatch(t, []string{"Title", "Author"}, item.Attrs.Names())
	}
}

func TestExecuteProjectionOmitsItemsWithoutColumns(t *testing.T) {
	q, err := Parse("select Keyword from mydomain where Year = '2002' or Year = '2007'")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)

	// B000SF3NGK matches the where clause but has no Keyword attribute.
	assert.Equal(t, []string{"B00005JPLW", "B000T9886K"}, resultNames(results))
}

func TestExecuteProjectionItemNameColumnMatchesNothing(t *testing.T) {
	q, err := Parse("select itemName() from mydomain where Year = '2007'")
	require.NoError(t, err)
	results, err := Execute(q, mediaCorpus())
	require.NoError(t, err)

	// itemName() in the projection list is a literal column string, not
	// a reference to item names.
	assert.Empty(t, results)
}
