package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"main.go",
		"pkg/a.py",
		"pkg/notes.txt",
		".git/config",
		"pkg/.hidden.go",
		"vendor/dep/dep.go",
	)

	var mu sync.Mutex
	var seen []string
	err := Scan(root, Options{IgnoreDirs: []string{"vendor"}, Workers: 3},
		func(path string, info fs.FileInfo) bool {
			return filepath.Ext(path) == ".txt"
		},
		func(path string, info fs.FileInfo) {
			rel, err := filepath.Rel(root, path)
			require.NoError(t, err)
			mu.Lock()
			seen = append(seen, filepath.ToSlash(rel))
			mu.Unlock()
		})
	require.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, []string{"main.go", "pkg/a.py"}, seen)
}

func TestScanMissingRoot(t *testing.T) {
	called := false
	err := Scan(filepath.Join(t.TempDir(), "nope"), Options{}, nil,
		func(string, fs.FileInfo) { called = true })
	assert.Error(t, err)
	assert.False(t, called)
}
