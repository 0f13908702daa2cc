package table

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/diwise/wsn-query/internal/pkg/wsn"
	"github.com/valyala/fastjson"
)

const (
	EpochColumn     string = "epoch"
	TimestampColumn string = "timestamp"
)

// Table is a flattened view of the results of a query. Each row has one cell
// per column; cells are nil, string, bool, json.Number or, in the timestamp
// column, time.Time.
type Table struct {
	Columns []string
	Rows    [][]any
}

func FromResponse(resp wsn.Response) (*Table, error) {
	return Tabulate(resp.Body)
}

// Tabulate flattens the results array of a query response body.
//
// Keys that flatten to the same column, such as a literal "a.b" next to
// {"a":{"b":..}}, share that column and the one that comes last in a record
// wins.
func Tabulate(body []byte) (*Table, error) {
	var p fastjson.Parser

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, &wsn.MalformedResponseError{Reason: "body is not valid json", Err: err}
	}

	if v.Type() != fastjson.TypeObject {
		return nil, &wsn.MalformedResponseError{Reason: fmt.Sprintf("expected an object, got %s", v.Type())}
	}

	results := v.Get("results")
	if results == nil {
		return nil, &wsn.MalformedResponseError{Reason: "results is missing"}
	}

	items, err := results.Array()
	if err != nil {
		return nil, &wsn.MalformedResponseError{Reason: fmt.Sprintf("results must be an array, got %s", results.Type())}
	}

	b := newBuilder(len(items))

	for i, item := range items {
		if item.Type() != fastjson.TypeObject {
			return nil, &wsn.MalformedResponseError{Reason: fmt.Sprintf("result %d is not an object", i)}
		}

		row := map[string]any{}
		flatten("", item, func(key string, value any) {
			if key == TimestampColumn {
				return
			}
			b.addColumn(key)
			row[key] = value
		})
		b.rows = append(b.rows, row)
	}

	return b.build(), nil
}

func flatten(prefix string, v *fastjson.Value, emit func(key string, value any)) {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object()
		if o.Len() == 0 && prefix != "" {
			emit(prefix, nil)
			return
		}
		o.Visit(func(k []byte, child *fastjson.Value) {
			flatten(join(prefix, string(k)), child, emit)
		})
	case fastjson.TypeArray:
		a, _ := v.Array()
		if len(a) == 0 {
			emit(prefix, nil)
			return
		}
		for i, child := range a {
			flatten(join(prefix, strconv.Itoa(i)), child, emit)
		}
	case fastjson.TypeString:
		emit(prefix, string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		emit(prefix, json.Number(v.String()))
	case fastjson.TypeTrue:
		emit(prefix, true)
	case fastjson.TypeFalse:
		emit(prefix, false)
	default:
		emit(prefix, nil)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

type builder struct {
	columns []string
	seen    map[string]struct{}
	rows    []map[string]any
}

func newBuilder(n int) *builder {
	return &builder{
		seen: map[string]struct{}{},
		rows: make([]map[string]any, 0, n),
	}
}

func (b *builder) addColumn(key string) {
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	b.columns = append(b.columns, key)
}

func (b *builder) build() *Table {
	t := &Table{
		Columns: append(slices.Clone(b.columns), TimestampColumn),
		Rows:    make([][]any, 0, len(b.rows)),
	}

	for _, m := range b.rows {
		row := make([]any, len(t.Columns))
		for i, c := range b.columns {
			row[i] = m[c]
		}
		if ts, ok := EpochToTime(m[EpochColumn]); ok {
			row[len(row)-1] = ts
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// Epochs outside these bounds have no RFC 3339 representation.
const (
	minEpoch int64 = -62135596800 // 0001-01-01T00:00:00Z
	maxEpoch int64 = 253402300799 // 9999-12-31T23:59:59Z
)

// EpochToTime converts a numeric cell holding seconds since the Unix epoch.
// Values outside years 0001 to 9999 are rejected.
func EpochToTime(v any) (time.Time, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return time.Time{}, false
	}

	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		if i < minEpoch || i > maxEpoch {
			return time.Time{}, false
		}
		return time.Unix(i, 0).UTC(), true
	}

	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, false
	}
	if f < float64(minEpoch) || f >= float64(maxEpoch+1) {
		return time.Time{}, false
	}

	sec, frac := math.Modf(f)
	ts := time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
	if ts.Unix() > maxEpoch {
		return time.Time{}, false
	}
	return ts, true
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Value returns the cell of the given row and column, or nil if the column does not exist.
func (t *Table) Value(row int, column string) any {
	i := t.ColumnIndex(column)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][i]
}

// Timestamp returns the derived timestamp of a row.
func (t *Table) Timestamp(row int) (time.Time, bool) {
	ts, ok := t.Value(row, TimestampColumn).(time.Time)
	return ts, ok
}

// RenameColumns replaces column names for which rename reports a new name.
// epoch and timestamp are never renamed.
func (t *Table) RenameColumns(rename func(string) (string, bool)) error {
	columns := slices.Clone(t.Columns)
	used := map[string]string{}

	for i, c := range columns {
		if c == EpochColumn || c == TimestampColumn {
			used[c] = c
			continue
		}
		if n, ok := rename(c); ok && n != "" {
			columns[i] = n
		}
	}

	for i, c := range columns {
		if prev, ok := used[c]; ok && prev != t.Columns[i] {
			return fmt.Errorf("could not rename %s to %s, already used by %s", t.Columns[i], c, prev)
		}
		used[c] = t.Columns[i]
	}

	t.Columns = columns
	return nil
}
