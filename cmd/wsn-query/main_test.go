package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diwise/wsn-query/internal/pkg/export"
	"github.com/diwise/wsn-query/internal/pkg/wsn"
	"github.com/matryer/is"
)

func TestFilterFromFlags(t *testing.T) {
	is := is.New(t)

	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-mote", "161398434909148276", "-from", "2017-12-01"})

	filter, err := f.filter()
	is.NoErr(err)

	v := filter.Values()
	is.Equal(v.Get("limit"), "10000")
	is.Equal(v.Get("offset"), "0")
	is.Equal(v.Get("mote"), "161398434909148276")
	is.Equal(v.Get("tst__gte"), "2017-12-01T00:00:00+00:00")
	is.True(!v.Has("tst__lte"))
	is.True(!v.Has("sensor"))
}

func TestFilterFromFlagsRejectsInvertedBounds(t *testing.T) {
	is := is.New(t)

	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-from", "2017-12-02", "-to", "2017-12-01T00:00:00Z"})

	_, err := f.filter()
	is.True(errors.Is(err, wsn.ErrInvalidFilter))
}

func TestSeparator(t *testing.T) {
	is := is.New(t)

	for sep, expected := range map[string]rune{",": ',', ";": ';', `\t`: '\t'} {
		r, err := flags{sep: sep}.separator()
		is.NoErr(err)
		is.Equal(r, expected)
	}

	_, err := flags{sep: ";;"}.separator()
	is.True(err != nil)
}

func TestRun(t *testing.T) {
	is := is.New(t)

	out := filepath.Join(t.TempDir(), "out.csv")
	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-out", out, "-sep", ";", "-rename", "cr6-biomet-permanent"})

	q := &export.QuerierMock{
		QueryFunc: func(ctx context.Context, filter wsn.QueryFilter) (wsn.Response, error) {
			return wsn.Response{Body: []byte(`{"results":[{"epoch":1000000000,"TA_2_1_1_1_1":-1.5}]}`)}, nil
		},
	}

	err := run(context.Background(), q, f)
	is.NoErr(err)

	b, err := os.ReadFile(out)
	is.NoErr(err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	is.Equal(lines[0], ";epoch;ta;timestamp")
	is.Equal(lines[1], "0;1000000000;-1.5;2001-09-09T01:46:40Z")
}

func TestRunReportsRemoteErrors(t *testing.T) {
	is := is.New(t)

	out := filepath.Join(t.TempDir(), "out.csv")
	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-out", out})

	q := &export.QuerierMock{
		QueryFunc: func(ctx context.Context, filter wsn.QueryFilter) (wsn.Response, error) {
			return wsn.Response{}, &wsn.RemoteRequestError{StatusCode: http.StatusForbidden}
		},
	}

	err := run(context.Background(), q, f)

	var rre *wsn.RemoteRequestError
	is.True(errors.As(err, &rre))
	is.Equal(rre.StatusCode, http.StatusForbidden)
}

func TestRunPublishRequiresBrokerHost(t *testing.T) {
	is := is.New(t)

	t.Setenv(rabbitHostVariable, "")
	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-publish", "-out", filepath.Join(t.TempDir(), "out.csv")})

	q := &export.QuerierMock{
		QueryFunc: func(ctx context.Context, filter wsn.QueryFilter) (wsn.Response, error) {
			return wsn.Response{Body: []byte(`{"results":[]}`)}, nil
		},
	}

	err := run(context.Background(), q, f)

	var ce *wsn.ConfigurationError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Setting, rabbitHostVariable)
	is.Equal(len(q.QueryCalls()), 0)
}

func TestRunUnknownFormat(t *testing.T) {
	is := is.New(t)

	f := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-format", "parquet", "-out", filepath.Join(t.TempDir(), "x")})

	q := &export.QuerierMock{
		QueryFunc: func(ctx context.Context, filter wsn.QueryFilter) (wsn.Response, error) {
			return wsn.Response{Body: []byte(`{"results":[]}`)}, nil
		},
	}

	is.True(run(context.Background(), q, f) != nil)
}
