// Package remote is the production exchange.CreateSource: it dials a
// remote shuffle endpoint over HTTP and decodes the chunks it streams
// back. Wire encoding is intentionally minimal (JSON over fasthttp),
// giving the merge-sort exchange a concrete seam to plug into without
// inventing a bespoke binary protocol.
package remote

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/s2"

	"github.com/cascadedb/cascade/columnar"
)

var json = jsoniter.ConfigFastest

// s2ContentEncoding is the value of the Content-Encoding header a /take
// response carries when its body is s2-compressed. Chunk payloads are
// compressed on the wire since they're the one part of this protocol
// large enough for it to pay off.
const s2ContentEncoding = "s2"

func compress(body []byte) []byte { return s2.Encode(nil, body) }

func decompress(body []byte) ([]byte, error) { return s2.Decode(nil, body) }

// wireColumn is the JSON wire shape of one columnar.Column.
type wireColumn struct {
	Type  columnar.DataType `json:"type"`
	I32   []int32           `json:"i32,omitempty"`
	I64   []int64           `json:"i64,omitempty"`
	F64   []float64         `json:"f64,omitempty"`
	B     []bool            `json:"b,omitempty"`
	S     []string          `json:"s,omitempty"`
	Nulls []uint64          `json:"nulls,omitempty"`
}

// wireChunk is the JSON wire shape of one columnar.Chunk transferred
// between a shuffle server and exchange/remote's client.
type wireChunk struct {
	Schema  []wireField  `json:"schema"`
	Columns []wireColumn `json:"columns"`
	NumRows int          `json:"num_rows"`
}

type wireField struct {
	Name string            `json:"name"`
	Type columnar.DataType `json:"type"`
}

// takeRequest is the body POSTed to a shuffle server's /take endpoint.
type takeRequest struct {
	TaskID    string `json:"task_id"`
	OutputID  int    `json:"output_id"`
	RequestID string `json:"request_id"`
}

// takeResponse wraps either a chunk, end-of-stream, or an error message.
type takeResponse struct {
	Chunk     *wireChunk `json:"chunk,omitempty"`
	EOF       bool       `json:"eof,omitempty"`
	Error     string     `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

func toWire(c *columnar.Chunk) *wireChunk {
	wc := &wireChunk{
		Schema:  make([]wireField, len(c.Schema.Fields)),
		Columns: make([]wireColumn, len(c.Columns)),
		NumRows: c.NumRows,
	}
	for i, f := range c.Schema.Fields {
		wc.Schema[i] = wireField{Name: f.Name, Type: f.Type}
	}
	for i := range c.Columns {
		col := &c.Columns[i]
		wc.Columns[i] = wireColumn{
			Type:  col.Type,
			I32:   col.I32,
			I64:   col.I64,
			F64:   col.F64,
			B:     col.B,
			S:     col.S,
			Nulls: col.Nulls.ExportWords(),
		}
	}
	return wc
}

func fromWire(wc *wireChunk) *columnar.Chunk {
	schema := columnar.Schema{Fields: make([]columnar.Field, len(wc.Schema))}
	for i, f := range wc.Schema {
		schema.Fields[i] = columnar.Field{Name: f.Name, Type: f.Type}
	}
	cols := make([]columnar.Column, len(wc.Columns))
	for i, wcol := range wc.Columns {
		cols[i] = columnar.Column{
			Type: wcol.Type,
			I32:  wcol.I32,
			I64:  wcol.I64,
			F64:  wcol.F64,
			B:    wcol.B,
			S:    wcol.S,
		}
		cols[i].Nulls = columnar.ImportWords(wcol.Nulls, wc.NumRows)
	}
	return columnar.NewChunk(schema, cols, wc.NumRows)
}
