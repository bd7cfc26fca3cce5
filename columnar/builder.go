package columnar

// Builder accumulates rows, pulled one at a time from arbitrary source
// chunks, into a new output Chunk. The merge-sort exchange's production
// loop uses exactly this shape: pop the heap's minimum row, AppendRow it
// into the builder, repeat until WINDOW rows or exhaustion.
type Builder struct {
	schema Schema
	cols   []Column
	n      int
}

// NewBuilder returns a Builder for the given schema with capacity reserved
// for cap rows per column.
func NewBuilder(schema Schema, cap int) *Builder {
	cols := make([]Column, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i].Type = f.Type
		cols[i].Nulls = newBitset(cap, false)
		switch f.Type {
		case Int32:
			cols[i].I32 = make([]int32, 0, cap)
		case Int64, Timestamp:
			cols[i].I64 = make([]int64, 0, cap)
		case Float64:
			cols[i].F64 = make([]float64, 0, cap)
		case Bool:
			cols[i].B = make([]bool, 0, cap)
		case String:
			cols[i].S = make([]string, 0, cap)
		}
	}
	return &Builder{schema: schema, cols: cols}
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.n }

// AppendRow copies row srcRow of src into the builder as a new row. src must
// share the builder's schema (callers in exchange/ enforce this once, at
// source-registration time, not on every row).
func (b *Builder) AppendRow(src *Chunk, srcRow int) {
	for i := range b.cols {
		dst := &b.cols[i]
		sc := &src.Columns[i]
		dst.growNulls(b.n)
		if sc.IsNull(srcRow) {
			dst.Nulls.set(b.n)
			b.appendZero(i)
			continue
		}
		switch dst.Type {
		case Int32:
			dst.I32 = append(dst.I32, sc.Int32At(srcRow))
		case Int64, Timestamp:
			dst.I64 = append(dst.I64, sc.Int64At(srcRow))
		case Float64:
			dst.F64 = append(dst.F64, sc.Float64At(srcRow))
		case Bool:
			dst.B = append(dst.B, sc.BoolAt(srcRow))
		case String:
			dst.S = append(dst.S, sc.StringAt(srcRow))
		}
	}
	b.n++
}

func (b *Builder) appendZero(col int) {
	dst := &b.cols[col]
	switch dst.Type {
	case Int32:
		dst.I32 = append(dst.I32, 0)
	case Int64, Timestamp:
		dst.I64 = append(dst.I64, 0)
	case Float64:
		dst.F64 = append(dst.F64, 0)
	case Bool:
		dst.B = append(dst.B, false)
	case String:
		dst.S = append(dst.S, "")
	}
}

// growNulls grows a column's null bitset past NewBuilder's reserved cap, for
// the (uncommon) case a builder accumulates more rows than it was sized for.
func (c *Column) growNulls(n int) {
	if n < c.Nulls.n {
		return
	}
	grown := newBitset(n+1, false)
	copy(grown.words, c.Nulls.words)
	c.Nulls = grown
}

// Finish produces the accumulated rows as a Chunk, all rows visible.
func (b *Builder) Finish() *Chunk {
	return NewChunk(b.schema, b.cols, b.n)
}
