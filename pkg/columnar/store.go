package columnar

// ColumnStore transposes rows into per-column value sequences. It keeps one
// canonical ordered list of columns; the name and index projections are built
// from that list on demand and share its storage.
//
// A ColumnStore is not safe for concurrent use.
type ColumnStore struct {
	capacity   int
	headers    []string
	headersSet bool
	columns    []*Column
}

// NewColumnStore creates a new column store. capacity pre-sizes each column and
// is normally the batch size.
func NewColumnStore(capacity int) *ColumnStore {
	if capacity < 0 {
		capacity = 0
	}
	return &ColumnStore{capacity: capacity}
}

// SetHeaders fixes the column names and count for the current stream. It is a
// no-op once headers or width have been set, until the next Reset.
func (s *ColumnStore) SetHeaders(names []string) {
	if s.headersSet {
		return
	}

	s.headers = make([]string, len(names))
	copy(s.headers, names)

	s.columns = make([]*Column, len(names))
	for i, name := range names {
		s.columns[i] = newColumn(i, name, s.capacity)
	}
	s.headersSet = true
}

// SetWidth fixes n unnamed columns for a stream whose source carries no
// header information. No-op once headers or width have been set.
func (s *ColumnStore) SetWidth(n int) {
	if s.headersSet {
		return
	}
	if n < 0 {
		n = 0
	}

	s.headers = nil
	s.columns = make([]*Column, n)
	for i := range s.columns {
		s.columns[i] = newColumn(i, "", s.capacity)
	}
	s.headersSet = true
}

// HasHeaders reports whether the column layout is fixed for this stream
func (s *ColumnStore) HasHeaders() bool {
	return s.headersSet
}

// Append adds one row. Missing trailing cells become null and cells beyond
// the column count are ignored. If no layout is fixed yet, the row's width
// fixes it.
func (s *ColumnStore) Append(row []*string) {
	if !s.headersSet {
		s.SetWidth(len(row))
	}

	for i, col := range s.columns {
		if i < len(row) {
			col.append(row[i])
		} else {
			col.append(nil)
		}
	}
}

// ClearValues empties every column in place. Headers and column identities
// are kept.
func (s *ColumnStore) ClearValues() {
	for _, col := range s.columns {
		col.clear()
	}
}

// Reset drops headers, columns and values
func (s *ColumnStore) Reset() {
	s.headers = nil
	s.headersSet = false
	s.columns = nil
}

// Headers returns a copy of the header names
func (s *ColumnStore) Headers() []string {
	if s.headers == nil {
		return nil
	}
	out := make([]string, len(s.headers))
	copy(out, s.headers)
	return out
}

// Columns returns the canonical column list
func (s *ColumnStore) Columns() []*Column {
	out := make([]*Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnsInOrder returns each column's value sequence in header order
func (s *ColumnStore) ColumnsInOrder() [][]*string {
	out := make([][]*string, len(s.columns))
	for i, col := range s.columns {
		out[i] = col.values
	}
	return out
}

// ByName returns the name projection. Unnamed columns are left out; when two
// columns share a name the later one wins.
func (s *ColumnStore) ByName() map[string][]*string {
	m := make(map[string][]*string, len(s.columns))
	s.PutByName(m)
	return m
}

// ByIndex returns the index projection, keys 0..N-1
func (s *ColumnStore) ByIndex() map[int][]*string {
	m := make(map[int][]*string, len(s.columns))
	s.PutByIndex(m)
	return m
}

// PutByName stores the name projection into m, overwriting existing keys
func (s *ColumnStore) PutByName(m map[string][]*string) {
	for _, col := range s.columns {
		if col.name == "" {
			continue
		}
		m[col.name] = col.values
	}
}

// PutByIndex stores the index projection into m, overwriting existing keys
func (s *ColumnStore) PutByIndex(m map[int][]*string) {
	for _, col := range s.columns {
		m[col.index] = col.values
	}
}

// Column retrieves a column's values by name
func (s *ColumnStore) Column(name string) ([]*string, bool) {
	if name == "" {
		return nil, false
	}
	for i := len(s.columns) - 1; i >= 0; i-- {
		if s.columns[i].name == name {
			return s.columns[i].values, true
		}
	}
	return nil, false
}

// ColumnAt retrieves a column's values by position
func (s *ColumnStore) ColumnAt(i int) ([]*string, bool) {
	if i < 0 || i >= len(s.columns) {
		return nil, false
	}
	return s.columns[i].values, true
}

// ColumnCount returns the number of columns
func (s *ColumnStore) ColumnCount() int {
	return len(s.columns)
}

// RowCount returns the number of rows held. A store without columns holds none.
func (s *ColumnStore) RowCount() int {
	if len(s.columns) == 0 {
		return 0
	}
	return s.columns[0].Len()
}

// MemoryUsage returns an estimate of the bytes held by the store
func (s *ColumnStore) MemoryUsage() int64 {
	var total int64

	total += 64 // Base struct overhead
	for _, h := range s.headers {
		total += int64(len(h)) + 16
	}
	for _, col := range s.columns {
		total += col.memoryUsage()
	}

	return total
}

var _ Reader = (*ColumnStore)(nil)
