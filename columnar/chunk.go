package columnar

import "fmt"

// DataType enumerates the column value kinds a Chunk can carry. Kept to the
// set the merge-sort exchange and block-cache loaders actually need to move;
// adding a kind means adding a case to each of builder.go's type switches
// (NewBuilder, AppendRow, appendZero).
type DataType uint8

const (
	Int32 DataType = iota
	Int64
	Float64
	Bool
	String
	Timestamp // stored as int64 nanoseconds since epoch, same as Int64 on the wire
)

func (t DataType) String() string {
	switch t {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Field names and types one column of a Schema.
type Field struct {
	Name string
	Type DataType
}

// Schema is the ordered column layout shared by every Chunk an
// ExchangeSource produces; the merge-sort exchange requires all sources
// to share one Schema.
type Schema struct {
	Fields []Field
}

func (s Schema) Len() int { return len(s.Fields) }

// Equal reports whether two schemas have the same fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f != o.Fields[i] {
			return false
		}
	}
	return true
}

// Column is one vector of values plus a null bitmap, all belonging to a
// single Field of a Chunk's Schema. Exactly one of the typed slices is
// populated, matching Field.Type; the others are nil.
type Column struct {
	Type DataType

	I32 []int32
	I64 []int64
	F64 []float64
	B   []bool
	S   []string

	Nulls bitset
}

// IsNull reports whether row idx is null in this column.
func (c *Column) IsNull(idx int) bool { return c.Nulls.get(idx) }

// Int32At returns the value at row idx; callers must check IsNull first.
func (c *Column) Int32At(idx int) int32     { return c.I32[idx] }
func (c *Column) Int64At(idx int) int64     { return c.I64[idx] }
func (c *Column) Float64At(idx int) float64 { return c.F64[idx] }
func (c *Column) BoolAt(idx int) bool       { return c.B[idx] }
func (c *Column) StringAt(idx int) string   { return c.S[idx] }

// Chunk is an immutable, fixed-row-count batch of K columns conforming to a
// shared Schema, plus a per-row visibility bitmap. A row is part of the
// chunk's logical output iff its visibility bit is set;
// NumRows is the chunk's physical row count, Cardinality its visible count.
type Chunk struct {
	Schema  Schema
	Columns []Column
	NumRows int

	visible    bitset
	visibleSet bool // true once Visibility has been explicitly computed
}

// NewChunk constructs a Chunk from pre-built columns, all rows visible by
// default (the common case: builders only ever append rows meant to survive).
func NewChunk(schema Schema, columns []Column, numRows int) *Chunk {
	if len(columns) != len(schema.Fields) {
		panic(fmt.Sprintf("columnar: schema has %d fields, got %d columns", len(schema.Fields), len(columns)))
	}
	return &Chunk{
		Schema:     schema,
		Columns:    columns,
		NumRows:    numRows,
		visible:    newBitset(numRows, true),
		visibleSet: true,
	}
}

// HideRow clears row idx's visibility bit; used by callers that filter a
// chunk in place rather than rebuilding it through a Builder.
func (c *Chunk) HideRow(idx int) {
	c.visible.clear(idx)
}

// Cardinality returns the number of visible rows in the chunk.
func (c *Chunk) Cardinality() int {
	return c.visible.count()
}

// NextVisibleRowIdx returns the first visible row index >= start, or
// (-1, false) if none remains.
func (c *Chunk) NextVisibleRowIdx(start int) (int, bool) {
	return c.visible.nextSet(start)
}

// IsVisible reports whether row idx is visible.
func (c *Chunk) IsVisible(idx int) bool {
	return c.visible.get(idx)
}

// Empty reports whether the chunk has no visible rows.
func (c *Chunk) Empty() bool {
	return c.Cardinality() == 0
}
