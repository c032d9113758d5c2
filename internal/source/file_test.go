package source_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitterfeed/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// scan drives p the way the parser does on a fresh parse: one line at a
// time, each read starting where the previous chunk ended.
func scan(p source.Provider) []string {
	var chunks []string
	var offset uint32
	var pos source.Position
	for {
		chunk := p.Read(offset, pos)
		if len(chunk) == 0 {
			return chunks
		}
		chunks = append(chunks, string(chunk))
		offset += uint32(len(chunk))
		pos = source.Advance(pos, chunk)
	}
}

func TestFileProviderScenario(t *testing.T) {
	p, err := source.OpenFile(writeFile(t, "abc\ndefg\nh\n"))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []string{"abc\n", "defg\n", "h\n"}, scan(p))

	chunk := p.Read(6, source.Position{Row: 1, Column: 2})
	assert.Equal(t, "fg\n", string(chunk))
	assert.Len(t, chunk, 3)

	assert.Empty(t, p.Read(11, source.Position{Row: 5, Column: 0}))
	assert.NoError(t, p.Err())
}

func TestFileProviderEndOfFile(t *testing.T) {
	p := source.NewFileProvider(strings.NewReader("abc\ndefg\nh\n"))
	scan(p)

	// row == number of lines
	assert.Empty(t, p.Read(11, source.Position{Row: 3, Column: 0}))
	assert.Equal(t, 4, p.Index().Len())
}

func TestFileProviderEveryPosition(t *testing.T) {
	lines := []string{"package main\n", "\n", "func main() {\n", "\tprintln(\"hi\")\n", "}"}
	p := source.NewFileProvider(strings.NewReader(strings.Join(lines, "")))
	scan(p)

	var offset uint32
	for row, line := range lines {
		for col := 0; col <= len(line)+2; col++ {
			got := p.Read(offset+uint32(col), source.Position{Row: uint32(row), Column: uint32(col)})
			if col >= len(line) {
				assert.Empty(t, got, "row %d col %d", row, col)
				continue
			}
			assert.Equal(t, line[col:], string(got), "row %d col %d", row, col)
		}
		offset += uint32(len(line))
	}
}

func TestFileProviderIdempotent(t *testing.T) {
	p := source.NewFileProvider(strings.NewReader("abc\ndefg\nh\n"))

	first := string(p.Read(0, source.Position{}))
	require.Equal(t, "abc\n", first)
	require.Equal(t, "defg\n", string(p.Read(4, source.Position{Row: 1})))

	// Backtrack to a row that is no longer in the buffer.
	assert.Equal(t, first, string(p.Read(0, source.Position{})))
	assert.Equal(t, first, string(p.Read(0, source.Position{})))
}

func TestFileProviderColumnPastLine(t *testing.T) {
	p := source.NewFileProvider(strings.NewReader("abc\ndefg\nh\n"))
	scan(p)

	got := p.Read(100, source.Position{Row: 0, Column: 100})
	assert.Empty(t, got)
	assert.Equal(t, 0, len(got))
}

func TestFileProviderUnindexedRow(t *testing.T) {
	p := source.NewFileProvider(strings.NewReader("abc\ndefg\nh\n"))

	assert.Empty(t, p.Read(6, source.Position{Row: 1, Column: 2}))
	assert.Equal(t, 1, p.Stats().Failures)
	_, ok := p.Index().Lookup(1)
	assert.False(t, ok)
}

func TestFileProviderLongLine(t *testing.T) {
	long := strings.Repeat("x", 10000) + "\n"
	p := source.NewFileProvider(strings.NewReader(long + "tail"))

	assert.Equal(t, []string{long, "tail"}, scan(p))
	assert.Equal(t, long[9000:], string(p.Read(9000, source.Position{Column: 9000})))
}

func TestFileProviderNoTrailingNewline(t *testing.T) {
	p := source.NewFileProvider(strings.NewReader("one\ntwo"))
	assert.Equal(t, []string{"one\n", "two"}, scan(p))
}

type brokenSeeker struct {
	io.Reader
}

func (brokenSeeker) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek failed")
}

func TestFileProviderReadErrorIsEndOfInput(t *testing.T) {
	p := source.NewFileProvider(brokenSeeker{strings.NewReader("abc\n")})

	assert.Empty(t, p.Read(0, source.Position{}))
	assert.EqualError(t, p.Err(), "seek failed")
	assert.Equal(t, 1, p.Stats().Failures)
}

func TestOpenFileFailures(t *testing.T) {
	_, err := source.OpenFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = source.OpenFile(t.TempDir())
	assert.Error(t, err)
}

func TestFileProviderClose(t *testing.T) {
	p, err := source.OpenFile(writeFile(t, "abc\n"))
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
