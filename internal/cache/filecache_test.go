package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"sitterfeed/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache creates a new cache instance with a temporary database file.
func newTestCache(t *testing.T) *cache.Filecache {
	t.Helper()
	c, err := cache.NewFilecache(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestUpsertFile(t *testing.T) {
	c := newTestCache(t)
	modified := time.Unix(1700000000, 42)

	file := cache.File{Path: "a/main.go", Language: "go", Modified: modified, Rows: 10, Bytes: 120}
	symbols := []cache.Symbol{
		{Name: "main", Kind: "function", Row: 6, Column: 0},
		{Name: "T", Kind: "type", Row: 2, Column: 5},
	}
	require.NoError(t, c.UpsertFile(file, symbols))

	got, err := c.GetLastModified("a/main.go")
	require.NoError(t, err)
	assert.True(t, got.Equal(modified))

	stored, err := c.GetSymbols("a/main.go")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "T", stored[0].Name)
	assert.Equal(t, "a/main.go", stored[0].Path)
	assert.Equal(t, uint32(5), stored[0].Column)

	files, err := c.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 10, files[0].Rows)
	assert.False(t, files[0].HasError)
	assert.False(t, files[0].IndexedAt.IsZero())
}

func TestUpsertReplacesSymbols(t *testing.T) {
	c := newTestCache(t)
	file := cache.File{Path: "x.py", Language: "python", Modified: time.Now()}

	require.NoError(t, c.UpsertFile(file, []cache.Symbol{{Name: "old", Kind: "function"}}))
	file.HasError = true
	require.NoError(t, c.UpsertFile(file, []cache.Symbol{{Name: "new", Kind: "class"}}))

	stored, err := c.GetSymbols("x.py")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "new", stored[0].Name)

	files, err := c.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].HasError)
}

func TestFindAndDelete(t *testing.T) {
	c := newTestCache(t)
	now := time.Now()
	require.NoError(t, c.UpsertFile(cache.File{Path: "a.c", Language: "c", Modified: now},
		[]cache.Symbol{{Name: "init", Kind: "function", Row: 3}}))
	require.NoError(t, c.UpsertFile(cache.File{Path: "b.c", Language: "c", Modified: now},
		[]cache.Symbol{{Name: "init", Kind: "function", Row: 9}, {Name: "node", Kind: "struct"}}))

	found, err := c.FindSymbols("init")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a.c", found[0].Path)
	assert.Equal(t, "b.c", found[1].Path)

	require.NoError(t, c.DeleteFile("a.c"))
	found, err = c.FindSymbols("init")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = c.GetLastModified("a.c")
	assert.ErrorIs(t, err, cache.ErrFileNotFound)
}
