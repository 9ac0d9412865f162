package columnar

// Reader is the read-only surface a batch consumer sees. Every slice it hands
// out aliases the store's storage and is only valid until the store is cleared
// or reset; callers that keep data must copy it (see CopyValues).
type Reader interface {
	// Headers returns the column names of the current stream, nil when the
	// stream has no names.
	Headers() []string
	// ColumnsInOrder returns the value sequence of every column in header order.
	ColumnsInOrder() [][]*string
	// ByName maps each non-empty column name to its value sequence.
	ByName() map[string][]*string
	// ByIndex maps each column position to its value sequence.
	ByIndex() map[int][]*string
	// Column returns the value sequence of the named column.
	Column(name string) ([]*string, bool)
	// ColumnAt returns the value sequence at position i.
	ColumnAt(i int) ([]*string, bool)
	// ColumnCount returns the number of columns.
	ColumnCount() int
	// RowCount returns the number of rows currently held.
	RowCount() int
}

// Column holds one column's identity and the values accumulated for the
// current batch.
type Column struct {
	index  int
	name   string
	values []*string
}

func newColumn(index int, name string, capacity int) *Column {
	return &Column{
		index:  index,
		name:   name,
		values: make([]*string, 0, capacity),
	}
}

// Index returns the column position
func (c *Column) Index() int { return c.index }

// Name returns the column name, empty for unnamed columns
func (c *Column) Name() string { return c.name }

// Len returns the number of values held
func (c *Column) Len() int { return len(c.values) }

// Values returns the value sequence. The slice aliases the column storage.
func (c *Column) Values() []*string { return c.values }

func (c *Column) append(v *string) {
	c.values = append(c.values, v)
}

// clear drops value references so the strings can be collected and
// truncates in place, keeping the allocated capacity for the next batch.
func (c *Column) clear() {
	clear(c.values)
	c.values = c.values[:0]
}

func (c *Column) memoryUsage() int64 {
	total := int64(cap(c.values) * 8)
	for _, v := range c.values {
		if v != nil {
			total += int64(len(*v)) + 16 // string header overhead
		}
	}
	return total
}

// Text returns a pointer to s, for building nullable cells.
func Text(s string) *string {
	return &s
}

// Value dereferences a nullable cell; ok is false for null.
func Value(v *string) (s string, ok bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}

// CopyValues returns an independent copy of a value sequence. Cells are
// immutable strings, so copying the pointers is enough to survive a clear.
func CopyValues(values []*string) []*string {
	if values == nil {
		return nil
	}
	out := make([]*string, len(values))
	copy(out, values)
	return out
}

// CopyColumns copies every sequence returned by ColumnsInOrder.
func CopyColumns(columns [][]*string) [][]*string {
	out := make([][]*string, len(columns))
	for i, col := range columns {
		out[i] = CopyValues(col)
	}
	return out
}
