package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/model"
)

func TestDecodeUpdates(t *testing.T) {
	params := map[string]string{
		"Attribute.1.Name":    "attr1",
		"Attribute.1.Value":   "attr1val1",
		"Attribute.3.Name":    "attr3",
		"Attribute.3.Value":   "attr3val1",
		"Attribute.6.Name":    "attr6",
		"Attribute.7.Name":    "attr7",
		"Attribute.7.Value":   "attr7val1",
		"Attribute.7.Replace": "true",
		"Attribute.8.Foobar":  "blah",
	}

	additions, replacements := decodeUpdates(params)

	assert.Equal(t, model.Updates{
		"attr1": model.NewValueSet("attr1val1"),
		"attr3": model.NewValueSet("attr3val1"),
	}, additions)
	assert.Equal(t, model.Updates{
		"attr7": model.NewValueSet("attr7val1"),
	}, replacements)
}

func TestDecodeUpdatesReplaceIsLiteralTrue(t *testing.T) {
	params := map[string]string{
		"Attribute.1.Name":    "a",
		"Attribute.1.Value":   "v",
		"Attribute.1.Replace": "True",
	}

	additions, replacements := decodeUpdates(params)

	assert.Equal(t, model.Updates{"a": model.NewValueSet("v")}, additions)
	assert.Empty(t, replacements)
}

func TestDecodeUpdatesAccumulatesValues(t *testing.T) {
	params := map[string]string{
		"Attribute.1.Name":  "a",
		"Attribute.1.Value": "1",
		"Attribute.2.Name":  "a",
		"Attribute.2.Value": "2",
	}

	additions, _ := decodeUpdates(params)

	assert.Equal(t, model.Updates{"a": model.NewValueSet("1", "2")}, additions)
}

func TestDecodeDeletions(t *testing.T) {
	params := map[string]string{
		"Attribute.1.Name":    "attr1",
		"Attribute.1.Value":   "attr1val1",
		"Attribute.3.Name":    "attr3",
		"Attribute.3.Value":   "attr3val1",
		"Attribute.6.Name":    "attr6",
		"Attribute.12.Value":  "attr12val1",
		"Attribute.7.Name":    "attr7",
		"Attribute.7.Value":   "attr7val1",
		"Attribute.7.Replace": "true",
		"Attribute.8.Foobar":  "blah",
	}

	deletions := decodeDeletions(params)

	assert.Equal(t, model.Deletions{
		"attr1": model.DeleteValues("attr1val1"),
		"attr3": model.DeleteValues("attr3val1"),
		"attr6": model.DeleteAll(),
		"attr7": model.DeleteValues("attr7val1"),
	}, deletions)
}

func TestDecodeDeletionsAllDominates(t *testing.T) {
	params := map[string]string{
		"Attribute.1.Name":  "a",
		"Attribute.1.Value": "v",
		"Attribute.2.Name":  "a",
	}

	deletions := decodeDeletions(params)

	require.Len(t, deletions, 1)
	assert.True(t, deletions["a"].All)
}

func TestDecodeExpectations(t *testing.T) {
	params := map[string]string{
		"Expected.1.Name":   "attr1",
		"Expected.1.Value":  "attr1val1",
		"Expected.3.Name":   "attr3",
		"Expected.3.Exists": "true",
		"Expected.6.Name":   "attr6",
		"Expected.6.Exists": "false",
		"Expected.9.Name":   "attr9",
	}

	expectations := decodeExpectations(params)

	assert.Equal(t, []model.Expectation{
		model.ExpectedValue("attr1", "attr1val1"),
		model.ExpectedExists("attr3", true),
		model.ExpectedExists("attr6", false),
	}, expectations)
}

func TestDecodeExpectationsExistsIsLiteralFalse(t *testing.T) {
	params := map[string]string{
		"Expected.1.Name":   "a",
		"Expected.1.Exists": "False",
	}

	expectations := decodeExpectations(params)

	assert.Equal(t, []model.Expectation{model.ExpectedExists("a", true)}, expectations)
}

func TestDecodeBatchUpdates(t *testing.T) {
	params := map[string]string{
		"Item.1.ItemName":            "item1",
		"Item.1.Attribute.1.Name":    "a",
		"Item.1.Attribute.1.Value":   "1",
		"Item.1.Attribute.2.Name":    "a",
		"Item.1.Attribute.2.Value":   "2",
		"Item.2.ItemName":            "item2",
		"Item.2.Attribute.1.Name":    "b",
		"Item.2.Attribute.1.Value":   "3",
		"Item.2.Attribute.1.Replace": "true",
		"Item.3.Attribute.1.Name":    "c",
		"Item.3.Attribute.1.Value":   "9",
	}

	additions, replacements := decodeBatchUpdates(params)

	assert.Equal(t, model.BatchUpdates{
		"item1": {"a": model.NewValueSet("1", "2")},
	}, additions)
	assert.Equal(t, model.BatchUpdates{
		"item2": {"b": model.NewValueSet("3")},
	}, replacements)
}

func TestDecodeBatchUpdatesMergesRepeatedItems(t *testing.T) {
	params := map[string]string{
		"Item.1.ItemName":          "item1",
		"Item.1.Attribute.1.Name":  "a",
		"Item.1.Attribute.1.Value": "1",
		"Item.2.ItemName":          "item1",
		"Item.2.Attribute.1.Name":  "a",
		"Item.2.Attribute.1.Value": "2",
	}

	additions, _ := decodeBatchUpdates(params)

	assert.Equal(t, model.BatchUpdates{
		"item1": {"a": model.NewValueSet("1", "2")},
	}, additions)
}

func TestDecodeBatchDeletions(t *testing.T) {
	params := map[string]string{
		"Item.1.ItemName":          "item1",
		"Item.1.Attribute.1.Name":  "a",
		"Item.1.Attribute.1.Value": "1",
		"Item.1.Attribute.2.Name":  "b",
		"Item.2.ItemName":          "item2",
	}

	deletions := decodeBatchDeletions(params)

	assert.Equal(t, model.BatchDeletions{
		"item1": {
			"a": model.DeleteValues("1"),
			"b": model.DeleteAll(),
		},
		"item2": {},
	}, deletions)
}

func TestFlattenTakesFirstValue(t *testing.T) {
	flat := flatten(url.Values{
		"Action": {"Select", "CreateDomain"},
		"Empty":  {},
	})

	assert.Equal(t, map[string]string{"Action": "Select"}, flat)
}
