package wsn

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultLimit  int = 100
	DefaultOffset int = 0
)

// TimeFormat is the layout expected by the remote API for tst__gte and tst__lte.
const TimeFormat string = "2006-01-02T15:04:05+00:00"

var ErrInvalidFilter = errors.New("invalid query filter")

// QueryFilter holds the optional parameters of a single query. Nil fields are
// not sent, except limit and offset which fall back to their defaults.
type QueryFilter struct {
	Limit  *int
	Offset *int
	Mote   *string
	Sensor *string
	From   *time.Time
	To     *time.Time
}

type FilterFunc func(*QueryFilter)

func NewFilter(opts ...FilterFunc) QueryFilter {
	f := QueryFilter{}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func WithLimit(limit int) FilterFunc {
	return func(f *QueryFilter) {
		f.Limit = &limit
	}
}

func WithOffset(offset int) FilterFunc {
	return func(f *QueryFilter) {
		f.Offset = &offset
	}
}

func WithMote(mote string) FilterFunc {
	return func(f *QueryFilter) {
		f.Mote = &mote
	}
}

func WithSensor(sensor string) FilterFunc {
	return func(f *QueryFilter) {
		f.Sensor = &sensor
	}
}

func WithFrom(from time.Time) FilterFunc {
	return func(f *QueryFilter) {
		f.From = &from
	}
}

func WithTo(to time.Time) FilterFunc {
	return func(f *QueryFilter) {
		f.To = &to
	}
}

func (f QueryFilter) Validate() error {
	if f.Limit != nil && *f.Limit < 1 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidFilter, *f.Limit)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidFilter, *f.Offset)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: lower bound %s is after upper bound %s", ErrInvalidFilter, FormatTime(*f.From), FormatTime(*f.To))
	}
	return nil
}

// Values renders the filter as query parameters.
func (f QueryFilter) Values() url.Values {
	params := url.Values{}

	limit := DefaultLimit
	if f.Limit != nil {
		limit = *f.Limit
	}
	params.Set("limit", strconv.Itoa(limit))

	offset := DefaultOffset
	if f.Offset != nil {
		offset = *f.Offset
	}
	params.Set("offset", strconv.Itoa(offset))

	if f.Mote != nil {
		params.Set("mote", *f.Mote)
	}
	if f.Sensor != nil {
		params.Set("sensor", *f.Sensor)
	}
	if f.From != nil {
		params.Set("tst__gte", FormatTime(*f.From))
	}
	if f.To != nil {
		params.Set("tst__lte", FormatTime(*f.To))
	}

	return params
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
