package exchange

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/cascadedb/cascade/columnar"
	"github.com/cascadedb/cascade/sortutil"
)

var json = jsoniter.ConfigFastest

// planOrderingColumn is the wire shape of one OrderingSpec key.
type planOrderingColumn struct {
	ColumnIdx int    `json:"column_idx"`
	Direction string `json:"direction"` // "ASC" or "DESC"
}

// planField is the wire shape of one schema field.
type planField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// planNode is the wire shape of a serialized merge-sort exchange plan node:
// ordering columns, the agreed input schema, and the list of remote source
// descriptors.
type planNode struct {
	Ordering []planOrderingColumn `json:"ordering"`
	Schema   []planField          `json:"schema"`
	Sources  []SourceDescriptor   `json:"sources"`
	Window   int                  `json:"window,omitempty"`
}

// PlanNode is the decoded, validated form of a merge-sort exchange plan.
type PlanNode struct {
	Ordering sortutil.OrderingSpec
	Schema   columnar.Schema
	Sources  []SourceDescriptor
	Window   int // 0 means "use the configured default"
}

func fieldType(s string) (columnar.DataType, error) {
	switch s {
	case "int32":
		return columnar.Int32, nil
	case "int64":
		return columnar.Int64, nil
	case "float64":
		return columnar.Float64, nil
	case "bool":
		return columnar.Bool, nil
	case "string":
		return columnar.String, nil
	case "timestamp":
		return columnar.Timestamp, nil
	default:
		return 0, newDecodeError(errors.Errorf("unknown column type %q", s))
	}
}

func direction(s string) (sortutil.Direction, error) {
	switch s {
	case "ASC", "":
		return sortutil.Asc, nil
	case "DESC":
		return sortutil.Desc, nil
	default:
		return 0, newDecodeError(errors.Errorf("unknown sort direction %q", s))
	}
}

// DecodePlanNode decodes and validates a serialized plan node. It rejects
// malformed JSON with a DecodeError, and an empty source list or unknown
// column type/direction with a ValidationError/DecodeError.
func DecodePlanNode(raw []byte) (*PlanNode, error) {
	var pn planNode
	if err := json.Unmarshal(raw, &pn); err != nil {
		return nil, newDecodeError(err)
	}
	if len(pn.Sources) == 0 {
		return nil, newValidationError("plan node declares zero sources")
	}
	if len(pn.Schema) == 0 {
		return nil, newValidationError("plan node declares empty schema")
	}

	schema := columnar.Schema{Fields: make([]columnar.Field, len(pn.Schema))}
	for i, f := range pn.Schema {
		t, err := fieldType(f.Type)
		if err != nil {
			return nil, err
		}
		schema.Fields[i] = columnar.Field{Name: f.Name, Type: t}
	}

	ordering := sortutil.OrderingSpec{Keys: make([]sortutil.SortKey, len(pn.Ordering))}
	for i, k := range pn.Ordering {
		if k.ColumnIdx < 0 || k.ColumnIdx >= len(schema.Fields) {
			return nil, newValidationError("ordering column_idx %d out of range for schema of %d fields", k.ColumnIdx, len(schema.Fields))
		}
		dir, err := direction(k.Direction)
		if err != nil {
			return nil, err
		}
		ordering.Keys[i] = sortutil.SortKey{ColumnIdx: k.ColumnIdx, Dir: dir}
	}

	return &PlanNode{
		Ordering: ordering,
		Schema:   schema,
		Sources:  pn.Sources,
		Window:   pn.Window,
	}, nil
}
