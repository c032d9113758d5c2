package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileProvider serves one line per read from a seekable, newline-delimited
// file. Only the current line is kept in memory.
type FileProvider struct {
	file   io.ReadSeeker
	closer io.Closer
	index  *LineIndex
	reader *bufio.Reader

	line    []byte
	lineRow uint32
	loaded  bool

	stats Stats
	err   error
}

// OpenFile opens path for reading. Open failures are returned here, before
// the provider is ever handed to a parser.
func OpenFile(path string) (*FileProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("failed to open source file: %s is a directory", path)
	}
	p := NewFileProvider(f)
	p.closer = f
	return p, nil
}

// NewFileProvider wraps an already opened handle. The caller keeps
// ownership of r unless it came from OpenFile.
func NewFileProvider(r io.ReadSeeker) *FileProvider {
	return &FileProvider{
		file:   r,
		index:  NewLineIndex(),
		reader: bufio.NewReader(r),
	}
}

// Read returns the bytes of row pos.Row from column pos.Column to the end
// of the line, newline included.
func (p *FileProvider) Read(offset uint32, pos Position) []byte {
	p.stats.Calls++

	if pos.Column == 0 {
		if _, ok := p.index.Lookup(pos.Row); !ok {
			p.index.Record(pos.Row, offset)
		}
	}
	start, ok := p.index.Lookup(pos.Row)
	if !ok {
		p.stats.Failures++
		log.Debugf("row %d requested at column %d before being indexed", pos.Row, pos.Column)
		return nil
	}

	if !p.loaded || p.lineRow != pos.Row {
		if err := p.readLine(start); err != nil {
			p.fail(err)
			return nil
		}
		p.lineRow = pos.Row
		p.loaded = true
	}

	if uint64(pos.Column) >= uint64(len(p.line)) {
		p.stats.EOFs++
		return nil
	}
	return p.line[pos.Column:]
}

// readLine replaces the line buffer with the line starting at offset.
func (p *FileProvider) readLine(offset uint32) error {
	p.loaded = false
	p.line = p.line[:0]
	if _, err := p.file.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}
	p.reader.Reset(p.file)
	for {
		part, err := p.reader.ReadSlice('\n')
		p.line = append(p.line, part...)
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

func (p *FileProvider) fail(err error) {
	p.stats.Failures++
	if p.err == nil {
		p.err = err
	}
	log.Warningf("read failed: %v", err)
}

// Err returns the first I/O error that was reported to the parser as end
// of input.
func (p *FileProvider) Err() error {
	return p.err
}

// Index exposes the rows observed so far.
func (p *FileProvider) Index() *LineIndex {
	return p.index
}

// Stats returns the counters collected so far.
func (p *FileProvider) Stats() Stats {
	return p.stats
}

// Close drops the line buffer and closes the file if the provider opened it.
func (p *FileProvider) Close() error {
	p.line = nil
	p.loaded = false
	if p.closer == nil {
		return nil
	}
	c := p.closer
	p.closer = nil
	return c.Close()
}
