package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSetBasics(t *testing.T) {
	s := NewValueSet("b", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))

	s.Add("c")
	s.Remove("a")
	assert.Equal(t, []string{"b", "c"}, s.Values())

	clone := s.Clone()
	clone.Add("z")
	assert.False(t, s.Contains("z"))
	assert.True(t, s.Equal(NewValueSet("b", "c")))
	assert.False(t, s.Equal(clone))
}

func TestAttributesAdd(t *testing.T) {
	attrs := Attributes{}
	attrs.Add("a", "1")
	attrs.Add("a", "2")
	attrs.Add("a", "1")
	attrs.Add("b", "3")
	assert.Equal(t, map[string][]string{"a": {"1", "2"}, "b": {"3"}}, attrs.Lists())
}

func TestAttributesListConversion(t *testing.T) {
	attrs := AttributesFromLists(map[string][]string{
		"Rating":  {"*****", "5 stars", "*****"},
		"Keyword": {"Book"},
		"Empty":   {},
	})
	require.Len(t, attrs, 2)
	assert.True(t, attrs["Rating"].Equal(NewValueSet("*****", "5 stars")))
	assert.Equal(t, []string{"Keyword", "Rating"}, attrs.Names())

	lists := attrs.Lists()
	assert.Equal(t, []string{"5 stars", "*****"}, lists["Rating"])
}

func TestMeasureDomain(t *testing.T) {
	items := map[string]Attributes{
		"item1": {
			"a": NewValueSet("1", "22"),
			"b": NewValueSet("333"),
		},
		"item2": {
			"a": NewValueSet("4444"),
		},
		"ghost": {},
	}

	md := MeasureDomain(items)
	assert.Equal(t, 2, md.ItemCount)
	assert.Equal(t, len("item1")+len("item2"), md.ItemNamesSizeBytes)
	assert.Equal(t, 2, md.AttributeNameCount)
	assert.Equal(t, 2, md.AttributeNamesSizeBytes)
	assert.Equal(t, 4, md.AttributeValueCount)
	assert.Equal(t, 1+2+3+4, md.AttributeValuesSizeBytes)
}

func TestErrorKinds(t *testing.T) {
	testCases := []struct {
		name   string
		err    *Error
		kind   string
		status int
	}{
		{"conditional", NewConditionalCheckFailed("Attribute (a) does not exist"), "ConditionalCheckFailed", http.StatusConflict},
		{"wrong value", NewWrongValueFound("a", "x", "y"), "ConditionalCheckFailed", http.StatusConflict},
		{"unexpected attribute", NewFoundUnexpectedAttribute("a"), "ConditionalCheckFailed", http.StatusConflict},
		{"attribute missing", NewAttributeDoesNotExist("a"), "AttributeDoesNotExist", http.StatusNotFound},
		{"multi valued", NewMultiValuedAttribute("a"), "MultiValuedAttribute", http.StatusConflict},
		{"invalid query", NewInvalidQueryExpression(), "InvalidQueryExpression", http.StatusBadRequest},
		{"invalid sort", NewInvalidSortExpression(), "InvalidSortExpression", http.StatusBadRequest},
		{"unknown action", NewUnknownAction("Explode"), "UnknownAction", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.NotEmpty(t, tc.err.Message)
		})
	}
}

func TestAsErrorUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("put item1: %w", NewWrongValueFound("a", "x", "y"))
	apiErr, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "ConditionalCheckFailed", apiErr.Kind)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}
