package export

import (
	"context"
	"fmt"

	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/diwise/wsn-query/internal/pkg/wsn"
)

//go:generate moq -rm -out querier_mock.go . Querier
type Querier interface {
	Query(ctx context.Context, filter wsn.QueryFilter) (wsn.Response, error)
}

// QueryToCSV queries, tabulates and writes the result to path. The table is
// only returned when WithReturnData is given.
func QueryToCSV(ctx context.Context, q Querier, filter wsn.QueryFilter, path string, opts ...Option) (*table.Table, error) {
	o := newOptions(opts...)

	resp, err := q.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	t, err := table.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	if o.rename != nil {
		if err := t.RenameColumns(o.rename); err != nil {
			return nil, fmt.Errorf("could not rename columns: %w", err)
		}
	}

	err = CSV(ctx, t, path, opts...)
	if err != nil {
		return nil, err
	}

	if o.returnData {
		return t, nil
	}

	return nil, nil
}
