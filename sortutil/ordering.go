// Package sortutil implements the merge-sort exchange's row ordering and
// the min-heap of per-source row cursors it drives.
package sortutil

import "github.com/cascadedb/cascade/columnar"

// Direction is a single sort key's ascending/descending direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

// SortKey names one column to compare on and its direction. Later keys in
// an OrderingSpec only apply when all earlier keys compare equal.
type SortKey struct {
	ColumnIdx int
	Dir       Direction
}

// OrderingSpec is the merge-sort exchange's total row ordering, decoded from
// the plan node and shared by every ExchangeSource: all sources
// must already be individually sorted by this same ordering.
type OrderingSpec struct {
	Keys []SortKey
}

// Compare returns <0 if row a of chunk ca sorts before row b of chunk cb,
// >0 if after, 0 if equal under every key. Comparing across two columns of
// different DataType is a caller bug (schemas are validated equal up front)
// and panics rather than silently misordering rows.
func (o OrderingSpec) Compare(ca *columnar.Chunk, a int, cb *columnar.Chunk, b int) int {
	for _, k := range o.Keys {
		ac := &ca.Columns[k.ColumnIdx]
		bc := &cb.Columns[k.ColumnIdx]
		c := compareCell(ac, a, bc, b)
		if k.Dir == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// compareCell orders nulls first, then compares by type. Returns <0, 0, >0.
func compareCell(ac *columnar.Column, a int, bc *columnar.Column, b int) int {
	an, bn := ac.IsNull(a), bc.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	switch ac.Type {
	case columnar.Int32:
		return cmpInt32(ac.Int32At(a), bc.Int32At(b))
	case columnar.Int64, columnar.Timestamp:
		return cmpInt64(ac.Int64At(a), bc.Int64At(b))
	case columnar.Float64:
		return cmpFloat64(ac.Float64At(a), bc.Float64At(b))
	case columnar.Bool:
		return cmpBool(ac.BoolAt(a), bc.BoolAt(b))
	case columnar.String:
		return cmpString(ac.StringAt(a), bc.StringAt(b))
	default:
		panic("sortutil: unsupported column type in comparison")
	}
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
