package export

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/diwise/senml"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/diwise/wsn-query/internal/pkg/wsn"
)

const (
	MoteColumn   string = "mote"
	SensorColumn string = "sensor"
)

// Pack converts one row into a SenML pack. The first record is a header
// named "0" holding the sensor tag; every other non empty cell becomes a
// record named after its column. Rows without a timestamp yield no pack.
func Pack(t *table.Table, row int) (senml.Pack, bool) {
	ts, ok := t.Timestamp(row)
	if !ok {
		return nil, false
	}

	mote := FormatCell(t.Value(row, MoteColumn))
	sensor := FormatCell(t.Value(row, SensorColumn))

	baseName := ""
	if mote != "" {
		baseName = mote + "/"
	}
	if sensor != "" {
		baseName += sensor + "/"
	}

	pack := senml.Pack{
		{
			BaseName:    baseName,
			BaseTime:    float64(ts.Unix()) + float64(ts.Nanosecond())/1e9,
			Name:        "0",
			StringValue: sensor,
		},
	}

	for i, c := range t.Columns {
		switch c {
		case table.EpochColumn, table.TimestampColumn, MoteColumn, SensorColumn:
			continue
		}

		switch v := t.Rows[row][i].(type) {
		case json.Number:
			f, err := strconv.ParseFloat(v.String(), 64)
			if err != nil {
				continue
			}
			pack = append(pack, senml.Record{Name: c, Value: &f})
		case bool:
			b := v
			pack = append(pack, senml.Record{Name: c, BoolValue: &b})
		case string:
			pack = append(pack, senml.Record{Name: c, StringValue: v})
		}
	}

	return pack, true
}

func Packs(t *table.Table) []senml.Pack {
	packs := make([]senml.Pack, 0, t.Len())
	for i := range t.Rows {
		if p, ok := Pack(t, i); ok {
			packs = append(packs, p)
		}
	}
	return packs
}

// SenML writes the table as a JSON array of SenML packs, one per row.
func SenML(ctx context.Context, t *table.Table, path string) (err error) {
	ctx, span := tracer.Start(ctx, "export-senml")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)
	packs := Packs(t)

	err = writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(packs)
	})
	if err != nil {
		return &wsn.ExportError{Path: path, Err: err}
	}

	log.Info("data saved", "path", path, "packs", len(packs), "skipped", t.Len()-len(packs))

	return nil
}
