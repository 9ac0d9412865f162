// Package columnar transposes rows of nullable text cells into per-column
// value sequences.
//
// # Overview
//
// A ColumnStore holds the header of the current stream and, for every
// column, the ordered values of the batch being accumulated. Cells are
// *string; nil is a null cell.
//
//	store := columnar.NewColumnStore(1000)
//	store.SetHeaders([]string{"id", "name"})
//	store.Append([]*string{columnar.Text("1"), columnar.Text("ada")})
//	store.Append([]*string{columnar.Text("2")}) // name is padded with null
//
//	ids, _ := store.Column("id")
//
// # Width Reconciliation
//
// The column count is fixed by SetHeaders, by SetWidth, or by the width of
// the first appended row, and stays fixed until Reset. Shorter rows are
// padded with nulls and cells past the last column are ignored, so every
// column always has the same length.
//
// # Projections
//
// ColumnsInOrder, ByName and ByIndex are derived from one ordered column
// list each time they are called. They return the store's own slices, not
// copies: ByName()["id"] and ByIndex()[0] are the same sequence.
//
// # Reuse
//
// ClearValues empties every column in place and keeps the headers; it is
// called between batches. Reset forgets the headers as well and is called
// when a new stream starts. Slices obtained before either call must not be
// used afterwards; use CopyValues or CopyColumns to keep data.
package columnar
