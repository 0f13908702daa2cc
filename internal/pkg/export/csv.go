package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/diwise/wsn-query/internal/pkg/wsn"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("wsn-query/export")

// CSV writes the table as delimited text to path, replacing any existing file.
// The first column is the 0-based row index and has an empty header.
// Concurrent writers to the same path race, the last rename wins.
func CSV(ctx context.Context, t *table.Table, path string, opts ...Option) (err error) {
	ctx, span := tracer.Start(ctx, "export-csv")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)
	o := newOptions(opts...)

	err = writeAtomic(path, func(w io.Writer) error {
		return writeCSV(w, t, o.separator)
	})
	if err != nil {
		return &wsn.ExportError{Path: path, Err: err}
	}

	log.Info("data saved", "path", path, "rows", t.Len())

	return nil
}

func writeCSV(w io.Writer, t *table.Table, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "")
	header = append(header, t.Columns...)

	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range t.Rows {
		record[0] = strconv.Itoa(i)
		for j, cell := range row {
			record[j+1] = FormatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeAtomic writes to a temporary file next to path and renames it into place.
// A symlink at path is followed and its target replaced. An existing file keeps
// its permission bits, new files get 0644.
func writeAtomic(path string, write func(io.Writer) error) error {
	if target, err := filepath.EvalSymlinks(path); err == nil {
		path = target
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}

	err = write(f)
	err = errors.Join(err, f.Chmod(mode), f.Close())
	if err == nil {
		err = os.Rename(tmp, path)
	}

	if err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case json.Number:
		return c.String()
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", c)
	}
}
