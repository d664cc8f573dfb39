package plot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

// ColumnOrderKey holds the JSON array of column names in result order. Parquet
// groups sort their fields by name, so readers restore the order from it.
const ColumnOrderKey = "analyzer.columns"

type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindDouble
	kindBool
)

// EncodeFrame serializes a result table to parquet for the chart runner. Every
// column is optional; column types are inferred from the non-nil values.
func EncodeFrame(result query.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("frame has no columns")
	}
	names := uniqueNames(result.Columns)
	kinds := make(map[string]columnKind, len(names))
	group := parquet.Group{}
	for i, name := range names {
		kind := inferKind(result.Rows, i)
		kinds[name] = kind
		group[name] = parquet.Optional(nodeFor(kind))
	}
	schema := parquet.NewSchema("frame", group)

	// Position of each column in the schema, which is name-sorted.
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	sourceIndex := make(map[string]int, len(names))
	for i, name := range names {
		sourceIndex[name] = i
	}

	order, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("encode column order: %w", err)
	}

	var buf bytes.Buffer
	writer := parquet.NewWriter(&buf, schema, parquet.KeyValueMetadata(ColumnOrderKey, string(order)))
	rows := make([]parquet.Row, 0, len(result.Rows))
	for _, source := range result.Rows {
		row := make(parquet.Row, 0, len(sorted))
		for columnIndex, name := range sorted {
			var cell any
			if idx := sourceIndex[name]; idx < len(source) {
				cell = source[idx]
			}
			row = append(row, valueFor(kinds[name], cell).Level(0, definitionLevel(cell), columnIndex))
		}
		rows = append(rows, row)
	}
	if _, err := writer.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write frame rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close frame writer: %w", err)
	}
	return buf.Bytes(), nil
}

func uniqueNames(columns []string) []string {
	seen := make(map[string]int, len(columns))
	out := make([]string, len(columns))
	for i, name := range columns {
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}

func inferKind(rows [][]any, index int) columnKind {
	kind := columnKind(-1)
	for _, row := range rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		current := kindOf(row[index])
		switch {
		case kind == -1:
			kind = current
		case kind == current:
		case (kind == kindInt && current == kindDouble) || (kind == kindDouble && current == kindInt):
			kind = kindDouble
		default:
			return kindString
		}
	}
	if kind == -1 {
		return kindString
	}
	return kind
}

func kindOf(value any) columnKind {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case float32, float64:
		return kindDouble
	case bool:
		return kindBool
	default:
		return kindString
	}
}

func nodeFor(kind columnKind) parquet.Node {
	switch kind {
	case kindInt:
		return parquet.Int(64)
	case kindDouble:
		return parquet.Leaf(parquet.DoubleType)
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

func definitionLevel(cell any) int {
	if cell == nil {
		return 0
	}
	return 1
}

func valueFor(kind columnKind, cell any) parquet.Value {
	if cell == nil {
		return parquet.NullValue()
	}
	switch kind {
	case kindInt:
		return parquet.Int64Value(toInt64(cell))
	case kindDouble:
		return parquet.DoubleValue(toFloat64(cell))
	case kindBool:
		return parquet.BooleanValue(cell.(bool))
	default:
		return parquet.ByteArrayValue([]byte(toString(cell)))
	}
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	default:
		return 0
	}
}

func toFloat64(value any) float64 {
	switch v := value.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return float64(toInt64(value))
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
