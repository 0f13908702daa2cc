package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/wsn-query/internal/pkg/export"
	"github.com/diwise/wsn-query/internal/pkg/storage"
	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/diwise/wsn-query/internal/pkg/variables"
	"github.com/diwise/wsn-query/internal/pkg/wsn"
)

const (
	serviceName string = "wsn-query"
	logFormat   string = "json"

	rabbitHostVariable string = "RABBITMQ_HOST"
)

type flags struct {
	limit, offset int
	mote, sensor  string
	from, to      string
	out, sep      string
	format        string
	rename        string
	store         bool
	publish       bool

	set map[string]bool
}

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, log, cleanup := o11y.Init(ctx, serviceName, serviceVersion, logFormat)
	defer cleanup()

	f := parseFlags(flag.CommandLine, os.Args[1:])

	client, err := wsn.New(wsn.LoadConfiguration(ctx))
	if err != nil {
		var ce *wsn.ConfigurationError
		if errors.As(err, &ce) && ce.Setting == wsn.TokenVariable {
			log.Error("define the WSN_TOKEN environment variable")
		} else {
			log.Error("could not configure client", "err", err.Error())
		}
		os.Exit(1)
	}

	err = run(ctx, client, f)
	if err != nil {
		log.Error("query not successful", "err", err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) flags {
	f := flags{set: map[string]bool{}}

	fs.IntVar(&f.limit, "limit", 10000, "Number of records to query, most recent first")
	fs.IntVar(&f.offset, "offset", wsn.DefaultOffset, "Number of most recent records to skip")
	fs.StringVar(&f.mote, "mote", "", "Waspmote ID")
	fs.StringVar(&f.sensor, "sensor", "", "Sensor tag")
	fs.StringVar(&f.from, "from", "", "Lower timestamp bound, RFC3339 or YYYY-MM-DD (UTC)")
	fs.StringVar(&f.to, "to", "", "Upper timestamp bound, RFC3339 or YYYY-MM-DD (UTC)")
	fs.StringVar(&f.out, "out", "waspmote_test.csv", "Destination file")
	fs.StringVar(&f.sep, "sep", ",", "Field separator for csv output")
	fs.StringVar(&f.format, "format", "csv", "Output format, csv or senml")
	fs.StringVar(&f.rename, "rename", "", "Rename channels using a station dictionary, e.g. "+variables.CR6BiometPermanent)
	fs.BoolVar(&f.store, "store", false, "Store fetched records in postgres")
	fs.BoolVar(&f.publish, "publish", false, "Publish fetched records on the message bus")
	fs.Parse(args)

	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})

	return f
}

func (f flags) filter() (wsn.QueryFilter, error) {
	opts := []wsn.FilterFunc{wsn.WithLimit(f.limit)}

	if f.set["offset"] {
		opts = append(opts, wsn.WithOffset(f.offset))
	}
	if f.mote != "" {
		opts = append(opts, wsn.WithMote(f.mote))
	}
	if f.sensor != "" {
		opts = append(opts, wsn.WithSensor(f.sensor))
	}
	if f.from != "" {
		t, err := parseTime(f.from)
		if err != nil {
			return wsn.QueryFilter{}, fmt.Errorf("invalid -from: %w", err)
		}
		opts = append(opts, wsn.WithFrom(t))
	}
	if f.to != "" {
		t, err := parseTime(f.to)
		if err != nil {
			return wsn.QueryFilter{}, fmt.Errorf("invalid -to: %w", err)
		}
		opts = append(opts, wsn.WithTo(t))
	}

	filter := wsn.NewFilter(opts...)
	return filter, filter.Validate()
}

func (f flags) separator() (rune, error) {
	r := []rune(f.sep)
	if f.sep == `\t` {
		return '\t', nil
	}
	if len(r) != 1 {
		return 0, fmt.Errorf("separator must be a single character, got %q", f.sep)
	}
	return r[0], nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

func run(ctx context.Context, q export.Querier, f flags) error {
	log := logging.GetFromContext(ctx)

	filter, err := f.filter()
	if err != nil {
		return err
	}

	sep, err := f.separator()
	if err != nil {
		return err
	}

	if f.publish {
		if err := checkMessagingConfig(ctx); err != nil {
			return err
		}
	}

	resp, err := q.Query(ctx, filter)
	if err != nil {
		return err
	}

	t, err := table.FromResponse(resp)
	if err != nil {
		return err
	}

	if resp.Count != nil {
		log.Info("query completed", "rows", t.Len(), "total", *resp.Count)
	}

	if f.rename != "" {
		d, err := variables.Get(f.rename)
		if err != nil {
			return err
		}
		if err := t.RenameColumns(d.Lookup); err != nil {
			return err
		}
	}

	switch f.format {
	case "csv":
		err = export.CSV(ctx, t, f.out, export.WithSeparator(sep))
	case "senml":
		err = export.SenML(ctx, t, f.out)
	default:
		err = fmt.Errorf("unknown format %q", f.format)
	}
	if err != nil {
		return err
	}

	if f.store {
		if err := store(ctx, t); err != nil {
			return err
		}
	}

	if f.publish {
		if err := publish(ctx, t); err != nil {
			return err
		}
	}

	return nil
}

func store(ctx context.Context, t *table.Table) error {
	log := logging.GetFromContext(ctx)

	db, err := storage.New(ctx, storage.LoadConfiguration(ctx))
	if err != nil {
		return fmt.Errorf("could not configure storage: %w", err)
	}
	defer db.Close()

	n, err := db.StoreTable(ctx, t)
	if err != nil {
		return err
	}

	log.Info("records stored", "count", n)
	return nil
}

// checkMessagingConfig fails early since messaging.LoadConfiguration panics
// when the broker host is missing.
func checkMessagingConfig(ctx context.Context) error {
	if env.GetVariableOrDefault(ctx, rabbitHostVariable, "") == "" {
		return &wsn.ConfigurationError{Setting: rabbitHostVariable}
	}
	return nil
}

func publish(ctx context.Context, t *table.Table) error {
	log := logging.GetFromContext(ctx)

	config := messaging.LoadConfiguration(ctx, serviceName, log)
	messenger, err := messaging.Initialize(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to init messenger: %w", err)
	}
	messenger.Start()
	defer messenger.Close()

	n, err := export.Publish(ctx, messenger, t)
	if err != nil {
		return err
	}

	log.Info("records published", "count", n)
	return nil
}
