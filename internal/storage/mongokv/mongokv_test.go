package mongokv

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/storage"
	"github.com/basicdb/basicdb-go/internal/storage/drivertest"
)

// TestMongoBackendContract needs a reachable deployment, e.g.
//
//	BASICDB_TEST_MONGO_URI="mongodb://localhost:27017"
//
// The test drops the basicdb_test database between subtests.
func TestMongoBackendContract(t *testing.T) {
	uri := os.Getenv("BASICDB_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BASICDB_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	backend, err := New(ctx, uri, "basicdb_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close(context.Background()) })

	drivertest.Run(t, func(t *testing.T) storage.Driver {
		require.NoError(t, backend.Reset(context.Background()))
		return backend
	})
}

func TestItemDocumentRoundTrip(t *testing.T) {
	attrs := model.AttributesFromLists(map[string][]string{
		"Color": {"red", "blue"},
		"a.b$c": {"v"},
	})

	doc := newItemDoc("item1", attrs)
	assert.Equal(t, "item1", doc.ID)
	assert.Equal(t, []attrEntry{
		{Name: "Color", Values: []string{"blue", "red"}},
		{Name: "a.b$c", Values: []string{"v"}},
	}, doc.Attrs)

	assert.Equal(t, attrs, doc.attributes())
}

func TestOwnerDocBucketLookup(t *testing.T) {
	doc := ownerDoc{ID: "owner", Domains: []domainEntry{
		{Name: "books", Bucket: "b-1"},
		{Name: "music", Bucket: "b-2"},
	}}

	bucket, ok := doc.bucketFor("music")
	assert.True(t, ok)
	assert.Equal(t, "b-2", bucket)

	_, ok = doc.bucketFor("films")
	assert.False(t, ok)
}
