package source

import "sort"

type lineEntry struct {
	row    uint32
	offset uint32
}

// LineIndex maps rows to the byte offset where they start. It only grows:
// an entry, once recorded, never changes.
type LineIndex struct {
	entries []lineEntry
}

// NewLineIndex returns an empty index.
func NewLineIndex() *LineIndex {
	return &LineIndex{}
}

// search returns the position of the first entry whose row is >= row.
func (x *LineIndex) search(row uint32) int {
	n := len(x.entries)
	if n == 0 || x.entries[n-1].row < row {
		return n
	}
	return sort.Search(n, func(i int) bool { return x.entries[i].row >= row })
}

// Lookup returns the starting offset of row.
func (x *LineIndex) Lookup(row uint32) (uint32, bool) {
	i := x.search(row)
	if i < len(x.entries) && x.entries[i].row == row {
		return x.entries[i].offset, true
	}
	return 0, false
}

// Record adds row at offset. It refuses rows that are already present and
// entries that would break the ordering of offsets relative to their
// neighbours.
func (x *LineIndex) Record(row, offset uint32) bool {
	i := x.search(row)
	if i < len(x.entries) && x.entries[i].row == row {
		return false
	}
	if i > 0 && x.entries[i-1].offset >= offset {
		return false
	}
	if i < len(x.entries) && x.entries[i].offset <= offset {
		return false
	}

	x.entries = append(x.entries, lineEntry{})
	copy(x.entries[i+1:], x.entries[i:])
	x.entries[i] = lineEntry{row: row, offset: offset}
	return true
}

// Len returns the number of indexed rows.
func (x *LineIndex) Len() int {
	return len(x.entries)
}

// Last returns the highest indexed row and its offset.
func (x *LineIndex) Last() (row, offset uint32, ok bool) {
	if len(x.entries) == 0 {
		return 0, 0, false
	}
	e := x.entries[len(x.entries)-1]
	return e.row, e.offset, true
}
