package parser_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goLines = []string{
	"package main\n",
	"\n",
	"type T struct{}\n",
	"\n",
	"func (t T) String() string { return \"t\" }\n",
	"\n",
	"func main() {\n",
	"\tprintln(T{}.String())\n",
	"}\n",
}

func goLanguage(t *testing.T) *parser.Language {
	t.Helper()
	lang, err := parser.Lookup("go")
	require.NoError(t, err)
	return lang
}

func symbolNames(symbols []parser.Symbol) []string {
	var names []string
	for _, s := range symbols {
		names = append(names, s.Kind+":"+s.Name)
	}
	return names
}

func TestSessionParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(goLines, "")), 0o644))

	provider, err := source.OpenFile(path)
	require.NoError(t, err)
	defer provider.Close()

	s := parser.NewSession(goLanguage(t), time.Second)
	defer s.Close()

	tree, err := s.Parse(context.Background(), provider)
	require.NoError(t, err)
	root := tree.RootNode()
	assert.Equal(t, "source_file", root.Type())
	assert.False(t, root.HasError())
	assert.Empty(t, parser.SyntaxErrors(root, 0))

	symbols, err := parser.Symbols(root, s.Language(), provider)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"type:T", "method:String", "function:main"}, symbolNames(symbols))
	assert.NoError(t, provider.Err())
}

func TestSessionParseCallbackMatchesFile(t *testing.T) {
	lang := goLanguage(t)

	file := source.NewFileProvider(strings.NewReader(strings.Join(goLines, "")))
	fromFile := parser.NewSession(lang, 0)
	defer fromFile.Close()
	fileTree, err := fromFile.Parse(context.Background(), file)
	require.NoError(t, err)

	producer := &source.LinesProducer{Lines: goLines}
	callback := source.NewCallbackProvider(producer)
	fromCallback := parser.NewSession(lang, 0)
	defer fromCallback.Close()
	callbackTree, err := fromCallback.Parse(context.Background(), callback)
	require.NoError(t, err)
	require.NoError(t, callback.Close())

	assert.Equal(t, fileTree.RootNode().String(), callbackTree.RootNode().String())
	assert.Equal(t, 0, producer.Outstanding)
	assert.Zero(t, callback.Stats().Violations)
}

func TestSessionIncrementalParse(t *testing.T) {
	before := []string{"package main\n", "\n", "func foo() {}\n"}
	after := []string{"package main\n", "\n", "func fooBar() {}\n"}

	s := parser.NewSession(goLanguage(t), 0)
	defer s.Close()

	assert.ErrorIs(t, s.Edit(parser.Edit{}), parser.ErrNoTree)

	first := source.NewCallbackProvider(&source.LinesProducer{Lines: before})
	_, err := s.Parse(context.Background(), first)
	require.NoError(t, err)
	first.Close()

	require.NoError(t, s.Edit(parser.Edit{
		StartIndex:  22,
		OldEndIndex: 22,
		NewEndIndex: 25,
		StartPoint:  sitterPoint(2, 8),
		OldEndPoint: sitterPoint(2, 8),
		NewEndPoint: sitterPoint(2, 11),
	}))

	second := source.NewCallbackProvider(&source.LinesProducer{Lines: after})
	defer second.Close()
	tree, err := s.Parse(context.Background(), second)
	require.NoError(t, err)

	symbols, err := parser.Symbols(tree.RootNode(), s.Language(), second)
	require.NoError(t, err)
	assert.Equal(t, []string{"function:fooBar"}, symbolNames(symbols))

	current, err := s.Tree()
	require.NoError(t, err)
	assert.Equal(t, tree, current)

	s.Reset()
	_, err = s.Tree()
	assert.ErrorIs(t, err, parser.ErrNoTree)
}

func TestSyntaxErrors(t *testing.T) {
	s := parser.NewSession(goLanguage(t), 0)
	defer s.Close()

	p := source.NewCallbackProvider(&source.LinesProducer{Lines: []string{
		"package main\n",
		"func main() {\n",
		"\tx := (1 + \n",
		"}\n",
	}})
	defer p.Close()

	tree, err := s.Parse(context.Background(), p)
	require.NoError(t, err)
	errs := parser.SyntaxErrors(tree.RootNode(), 0)
	require.NotEmpty(t, errs)
	assert.Len(t, parser.SyntaxErrors(tree.RootNode(), 1), 1)
}

// endless never runs out of input.
func endless(onRead func(n int)) source.Producer {
	n := 0
	return source.Funcs{
		OnProduce: func(uint32, source.Position) (source.Chunk, error) {
			n++
			if onRead != nil {
				onRead(n)
			}
			return source.Chunk{Data: []byte("x = 1\n")}, nil
		},
	}
}

func TestSessionCancelledBetweenReads(t *testing.T) {
	python, err := parser.Lookup("python")
	require.NoError(t, err)
	s := parser.NewSession(python, 0)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := 0
	p := source.NewCallbackProvider(endless(func(n int) {
		reads = n
		if n == 100 {
			cancel()
		}
	}))
	defer p.Close()

	tree, err := s.Parse(ctx, p)
	require.Error(t, err)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, parser.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 100, reads)
}

func TestSessionTimeout(t *testing.T) {
	python, err := parser.Lookup("python")
	require.NoError(t, err)
	s := parser.NewSession(python, 20*time.Millisecond)
	defer s.Close()

	p := source.NewCallbackProvider(endless(nil))
	defer p.Close()

	start := time.Now()
	_, err = s.Parse(context.Background(), p)
	assert.ErrorIs(t, err, parser.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPoolParse(t *testing.T) {
	pool := parser.NewPool(2, 0)
	defer pool.Close()
	lang := goLanguage(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := source.NewCallbackProvider(&source.LinesProducer{Lines: goLines})
			defer p.Close()

			tree, err := pool.Parse(context.Background(), lang, p)
			if !assert.NoError(t, err) {
				return
			}
			defer tree.Close()
			assert.Equal(t, "source_file", tree.RootNode().Type())
		}()
	}
	wg.Wait()
}

func TestLanguages(t *testing.T) {
	lang, err := parser.ForPath("dir/main.go", nil)
	require.NoError(t, err)
	assert.Equal(t, "go", lang.Name)

	lang, err = parser.ForPath("lib.H", nil)
	require.NoError(t, err)
	assert.Equal(t, "c", lang.Name)

	lang, err = parser.ForPath("script.tpl", map[string]string{".tpl": "javascript"})
	require.NoError(t, err)
	assert.Equal(t, "javascript", lang.Name)

	_, err = parser.ForPath("notes.txt", nil)
	assert.ErrorIs(t, err, parser.ErrUnknownLanguage)
	_, err = parser.Lookup("cobol")
	assert.ErrorIs(t, err, parser.ErrUnknownLanguage)

	assert.Equal(t, []string{"c", "go", "javascript", "python"}, parser.Names())
}

func TestSymbolQueriesCompile(t *testing.T) {
	for _, name := range parser.Names() {
		lang, err := parser.Lookup(name)
		require.NoError(t, err)

		s := parser.NewSession(lang, 0)
		p := source.NewCallbackProvider(&source.LinesProducer{Lines: []string{"\n"}})
		tree, err := s.Parse(context.Background(), p)
		require.NoError(t, err, name)

		_, err = parser.Symbols(tree.RootNode(), lang, p)
		assert.NoError(t, err, name)
		p.Close()
		s.Close()
	}
}
