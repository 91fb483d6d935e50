// Package source streams raw catalog inputs (product metadata and review
// dumps) record by record.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
)

// RecordFunc receives one raw record as JSON. data is only valid for the
// duration of the call. Returning an error stops the stream.
type RecordFunc func(n int, data []byte) error

// Format is the container format of a raw input.
type Format string

// Supported formats.
const (
	FormatJSONL     Format = "jsonl"
	FormatJSONLGzip Format = "jsonl.gz"
	FormatJSONLZstd Format = "jsonl.zst"
	FormatParquet   Format = "parquet"
)

// DetectFormat picks the format from the file name.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".parquet"):
		return FormatParquet, nil
	case strings.HasSuffix(name, ".jsonl.gz"), strings.HasSuffix(name, ".json.gz"):
		return FormatJSONLGzip, nil
	case strings.HasSuffix(name, ".jsonl.zst"), strings.HasSuffix(name, ".json.zst"):
		return FormatJSONLZstd, nil
	case strings.HasSuffix(name, ".jsonl"), strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".ndjson"):
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported input %s: want .jsonl[.gz|.zst] or .parquet", path)
	}
}

// Each streams every record of the file at path through fn. Parquet rows
// are re-encoded as JSON objects keyed by top-level column name so callers
// decode both formats the same way.
func Each(ctx context.Context, path string, fn RecordFunc) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format == FormatParquet {
		return eachParquet(ctx, path, fn)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatJSONLGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case FormatJSONLZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	if err := artifact.ScanLines(ctx, r, fn); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}
