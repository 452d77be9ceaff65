package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/storage"
	"github.com/basicdb/basicdb-go/internal/storage/drivertest"
)

func TestFilesystemBackendContract(t *testing.T) {
	drivertest.Run(t, func(t *testing.T) storage.Driver {
		backend, err := New(t.TempDir())
		require.NoError(t, err)
		return backend
	})
}

func TestOnDiskLayout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	backend, err := New(base)
	require.NoError(t, err)

	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))

	// Values live under owner/domain/item/attribute, named by the MD5
	// hex digest of the value and holding the raw bytes.
	path := filepath.Join(base, "owner", "books", "item1", "Color", "bda9643ac6601722a28f238714274da4")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "red", string(raw))

	// Re-adding the same value rewrites the same file.
	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirectoriesArePruned(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	backend, err := New(base)
	require.NoError(t, err)

	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))
	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "blue"))
	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Shape", "round"))

	attrDir := filepath.Join(base, "owner", "books", "item1", "Color")
	itemDir := filepath.Join(base, "owner", "books", "item1")

	// Removing one of two values keeps the attribute directory.
	require.NoError(t, backend.DeleteAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))
	assert.DirExists(t, attrDir)

	// Removing the last value prunes the attribute directory but the
	// item still has Shape.
	require.NoError(t, backend.DeleteAttributeValue(ctx, "owner", "books", "item1", "Color", "blue"))
	assert.NoDirExists(t, attrDir)
	assert.DirExists(t, itemDir)

	// Dropping the last attribute prunes the item directory too; the
	// domain directory stays because the domain still exists.
	require.NoError(t, backend.DeleteAttributeAll(ctx, "owner", "books", "item1", "Shape"))
	assert.NoDirExists(t, itemDir)
	assert.DirExists(t, filepath.Join(base, "owner", "books"))
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	backend, err := New(base)
	require.NoError(t, err)
	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))
	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "blue"))

	reopened, err := New(base)
	require.NoError(t, err)
	attrs, err := reopened.GetAttributes(ctx, "owner", "books", "item1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Color": {"blue", "red"}}, attrs.Lists())
}

func TestResetRecreatesBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	backend, err := New(base)
	require.NoError(t, err)

	require.NoError(t, backend.AddAttributeValue(ctx, "owner", "books", "item1", "Color", "red"))
	require.NoError(t, backend.Reset(ctx))

	assert.DirExists(t, base)
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
