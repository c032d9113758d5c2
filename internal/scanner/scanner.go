// scanner is used to walk a source tree for indexing.
package scanner

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.scanner")

// Options control which directories are walked.
type Options struct {
	IgnoreDirs []string
	Workers    int
}

// Scan walks the entire subtree under root. Any file or directory
// whose name begins with “.” is skipped entirely, as are directories
// named in IgnoreDirs. For each remaining file, skip() is applied and
// if it returns false callback(path, info) runs on one of the workers.
// Scan will only return once all callbacks have completed.
func Scan(
	root string,
	opts Options,
	skip func(path string, info fs.FileInfo) bool,
	callback func(path string, info fs.FileInfo),
) error {
	type job struct {
		path string
		info fs.FileInfo
	}

	workers := max(opts.Workers, 1)
	fileCh := make(chan job, 100)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range fileCh {
				callback(j.path, j.info)
			}
		}()
	}

	log.Debugf("starting walk at %q", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warningf("walk error: %s", err)
			return nil
		}

		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && slices.Contains(opts.IgnoreDirs, name) {
				log.Debugf("skipping %q", path)
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if skip != nil && skip(path, info) {
			return nil
		}

		fileCh <- job{path: path, info: info}
		return nil
	})

	// no more files to send
	close(fileCh)
	// wait for the workers to finish consuming and calling back
	wg.Wait()
	return err
}
