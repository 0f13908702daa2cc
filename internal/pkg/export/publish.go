package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/diwise/wsn-query/pkg/types"
	"github.com/google/uuid"
)

type Publisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

// Publish sends one RecordFetched message per row that has a timestamp.
// It returns the number of published messages.
func Publish(ctx context.Context, p Publisher, t *table.Table) (n int, err error) {
	ctx, span := tracer.Start(ctx, "publish")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	var errs []error

	for i := range t.Rows {
		pack, ok := Pack(t, i)
		if !ok {
			log.Debug("row has no timestamp, will not publish", "row", i)
			continue
		}

		ts, _ := t.Timestamp(i)

		msg := &types.RecordFetched{
			ID:        uuid.NewString(),
			Mote:      FormatCell(t.Value(i, MoteColumn)),
			Sensor:    FormatCell(t.Value(i, SensorColumn)),
			Pack:      pack,
			Timestamp: ts,
		}

		if len(msg.Body()) == 0 {
			errs = append(errs, fmt.Errorf("row %d: could not encode message", i))
			continue
		}

		if perr := p.PublishOnTopic(ctx, msg); perr != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, perr))
			continue
		}
		n++
	}

	err = errors.Join(errs...)
	if err != nil {
		log.Error("failed to publish all records", "published", n, "err", err.Error())
	}

	return n, err
}
