package storage

import (
	"encoding/json"
	"time"

	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/jackc/pgx/v5"
)

const upsertRecord string = `
	INSERT INTO wsn_records(mote, sensor, epoch, observed_at, data)
	VALUES (@mote, @sensor, @epoch, @observed_at, @data)
	ON CONFLICT (mote, sensor, epoch)
	DO UPDATE SET data=EXCLUDED.data, modified_on=CURRENT_TIMESTAMP;`

type row struct {
	index      int
	mote       string
	sensor     string
	observedAt time.Time
	data       rowMap
}

func (r row) args() pgx.NamedArgs {
	return pgx.NamedArgs{
		"mote":        r.mote,
		"sensor":      r.sensor,
		"epoch":       r.observedAt.Unix(),
		"observed_at": r.observedAt,
		"data":        r.data.Data(),
	}
}

func newRows(t *table.Table) ([]row, int) {
	rows := make([]row, 0, t.Len())
	skipped := 0

	for i, cells := range t.Rows {
		ts, ok := t.Timestamp(i)
		if !ok {
			skipped++
			continue
		}

		m := rowMap{}
		for j, c := range t.Columns {
			if c == table.TimestampColumn || cells[j] == nil {
				continue
			}
			m[c] = cells[j]
		}

		mote, _ := m.getString("mote")
		sensor, _ := m.getString("sensor")

		rows = append(rows, row{
			index:      i,
			mote:       mote,
			sensor:     sensor,
			observedAt: ts,
			data:       m,
		})
	}

	return rows, skipped
}

func (m rowMap) Data() string {
	b, _ := json.Marshal(m)
	return string(b)
}
