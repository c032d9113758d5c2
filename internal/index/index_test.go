package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitterfeed/internal/cache"
	"sitterfeed/internal/parser"
	"sitterfeed/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexer(t *testing.T) (*Indexer, *cache.Filecache) {
	t.Helper()
	fc, err := cache.NewFilecache(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	pool := parser.NewPool(2, time.Second)
	t.Cleanup(func() {
		pool.Close()
		fc.Close()
	})
	return NewIndexer(fc, pool, nil, scanner.Options{Workers: 2}), fc
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexerRun(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n\ntype T struct{}\n")
	write(t, filepath.Join(root, "lib", "util.py"), "def helper():\n    pass\n\nclass Box:\n    pass\n")
	write(t, filepath.Join(root, "README.md"), "# readme\n")

	ix, fc := newIndexer(t)
	report, err := ix.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 0, report.Failed)

	symbols, err := fc.GetSymbols(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "main", symbols[0].Name)
	assert.Equal(t, "function", symbols[0].Kind)
	assert.Equal(t, uint32(2), symbols[0].Row)
	assert.Equal(t, uint32(5), symbols[0].Column)
	assert.Equal(t, "T", symbols[1].Name)

	found, err := fc.FindSymbols("Box")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "class", found[0].Kind)

	files, err := fc.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Positive(t, f.Rows, f.Path)
		assert.False(t, f.HasError, f.Path)
	}

	// nothing changed on disk
	report, err = ix.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, 2, report.Skipped)

	ix.Force = true
	report, err = ix.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
}

func TestIndexerReindexesModified(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.c")
	write(t, path, "int one(void) { return 1; }\n")

	ix, fc := newIndexer(t)
	_, err := ix.Run(context.Background(), root)
	require.NoError(t, err)

	write(t, path, "int two(void) { return 2; }\nint broken( {\n")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	report, err := ix.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)

	found, err := fc.FindSymbols("one")
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = fc.FindSymbols("two")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	files, err := fc.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].HasError)
}

func TestIndexerFileErrors(t *testing.T) {
	ix, _ := newIndexer(t)
	dir := t.TempDir()

	_, err := ix.File(context.Background(), filepath.Join(dir, "notes.txt"), nil)
	assert.ErrorIs(t, err, parser.ErrUnknownLanguage)

	missing := filepath.Join(dir, "gone.go")
	write(t, missing, "package gone\n")
	info, err := os.Stat(missing)
	require.NoError(t, err)
	require.NoError(t, os.Remove(missing))
	_, err = ix.File(context.Background(), missing, info)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIndexerPrune(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.go")
	drop := filepath.Join(root, "drop.go")
	write(t, keep, "package x\n")
	write(t, drop, "package x\n")

	ix, fc := newIndexer(t)
	_, err := ix.Run(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, os.Remove(drop))

	n, err := ix.Prune(func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := fc.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, keep, files[0].Path)
}

func TestIndexerCancelled(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "main.go"), "package main\n")

	ix, _ := newIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := ix.Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Indexed)
}
