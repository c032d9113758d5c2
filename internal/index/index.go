// Package index walks a source tree, parses every recognized file through a
// FileProvider and records its symbols in the cache.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"sitterfeed/internal/cache"
	"sitterfeed/internal/parser"
	"sitterfeed/internal/scanner"
	"sitterfeed/internal/source"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.index")

// Report summarizes one indexing run.
type Report struct {
	Indexed int
	Skipped int
	Failed  int
	Errors  []error
}

// Indexer parses files into the cache.
type Indexer struct {
	cache     *cache.Filecache
	pool      *parser.Pool
	overrides map[string]string
	opts      scanner.Options

	// Force re-indexes files whose mtime did not change.
	Force bool
}

// NewIndexer returns an Indexer writing to fc and parsing with pool.
func NewIndexer(fc *cache.Filecache, pool *parser.Pool, overrides map[string]string, opts scanner.Options) *Indexer {
	return &Indexer{
		cache:     fc,
		pool:      pool,
		overrides: overrides,
		opts:      opts,
	}
}

// Run indexes every file below root.
func (ix *Indexer) Run(ctx context.Context, root string) (Report, error) {
	var indexed, skipped, failed atomic.Int64
	var mu sync.Mutex
	var errs []error

	err := scanner.Scan(root, ix.opts,
		func(path string, info fs.FileInfo) bool {
			_, err := parser.ForPath(path, ix.overrides)
			return err != nil
		},
		func(path string, info fs.FileInfo) {
			if ctx.Err() != nil {
				skipped.Add(1)
				return
			}
			done, err := ix.File(ctx, path, info)
			switch {
			case err != nil:
				log.Warningf("%s: %s", path, err)
				failed.Add(1)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			case done:
				indexed.Add(1)
			default:
				skipped.Add(1)
			}
		})

	report := Report{
		Indexed: int(indexed.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
		Errors:  errs,
	}
	if err != nil {
		return report, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return report, ctx.Err()
}

// File indexes one file. It reports false when the cached entry is current.
func (ix *Indexer) File(ctx context.Context, path string, info fs.FileInfo) (bool, error) {
	lang, err := parser.ForPath(path, ix.overrides)
	if err != nil {
		return false, err
	}

	if !ix.Force {
		last, err := ix.cache.GetLastModified(path)
		switch {
		case err == nil && last.Equal(info.ModTime()):
			log.Debugf("%s unchanged", path)
			return false, nil
		case err != nil && !errors.Is(err, cache.ErrFileNotFound):
			return false, err
		}
	}

	provider, err := source.OpenFile(path)
	if err != nil {
		return false, err
	}
	defer provider.Close()

	tree, err := ix.pool.Parse(ctx, lang, provider)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()
	if err := provider.Err(); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	root := tree.RootNode()
	found, err := parser.Symbols(root, lang, provider)
	if err != nil {
		return false, err
	}

	symbols := make([]cache.Symbol, 0, len(found))
	for _, s := range found {
		symbols = append(symbols, cache.Symbol{
			Path:   path,
			Name:   s.Name,
			Kind:   s.Kind,
			Row:    s.NameStart.Row,
			Column: s.NameStart.Column,
		})
	}

	end := root.EndPoint()
	rows := int(end.Row)
	if end.Column > 0 {
		rows++
	}
	file := cache.File{
		Path:     path,
		Language: lang.Name,
		Modified: info.ModTime(),
		Rows:     rows,
		Bytes:    int(root.EndByte()),
		HasError: root.HasError(),
	}
	if err := ix.cache.UpsertFile(file, symbols); err != nil {
		return false, fmt.Errorf("failed to store %s: %w", path, err)
	}
	log.Debugf("indexed %s: %d symbols", path, len(symbols))
	return true, nil
}

// Prune drops cached files that no longer exist on disk.
func (ix *Indexer) Prune(exists func(path string) bool) (int, error) {
	files, err := ix.cache.GetFiles()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if exists(f.Path) {
			continue
		}
		if err := ix.cache.DeleteFile(f.Path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
