package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// column describes one leaf column of the file schema.
type column struct {
	name     string
	repeated bool
}

func eachParquet(ctx context.Context, path string, fn RecordFunc) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return fmt.Errorf("open parquet %s: %w", path, err)
	}

	cols := resolveColumns(pf)
	n := 0
	buf := make([]parquet.Row, 1000)

	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // context error
		}
		rows := parquet.NewRowGroupReader(rg)
		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				n++
				data, err := json.Marshal(rowToObject(buf[i], cols))
				if err != nil {
					return fmt.Errorf("encode row %d: %w", n, err)
				}
				if err := fn(n, data); err != nil {
					return err
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return nil
}

// resolveColumns maps leaf indexes to their top-level field. Leaves with a
// repetition level collect into arrays. MAP columns are skipped.
func resolveColumns(pf *parquet.File) []column {
	schema := pf.Schema()
	paths := schema.Columns()
	cols := make([]column, len(paths))
	for i, path := range paths {
		if len(path) == 0 || isMapPath(path) {
			continue
		}
		leaf, ok := schema.Lookup(path...)
		if !ok {
			continue
		}
		cols[i] = column{name: path[0], repeated: leaf.MaxRepetitionLevel > 0}
	}
	return cols
}

func isMapPath(path []string) bool {
	for _, p := range path[1:] {
		if p == "key_value" {
			return true
		}
	}
	return false
}

func rowToObject(row parquet.Row, cols []column) map[string]any {
	obj := make(map[string]any, len(cols))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(cols) || cols[idx].name == "" {
			continue
		}
		c := cols[idx]
		if c.repeated {
			list, _ := obj[c.name].([]any)
			if !v.IsNull() {
				list = append(list, valueOf(v))
			}
			obj[c.name] = list
			continue
		}
		if v.IsNull() {
			obj[c.name] = nil
			continue
		}
		obj[c.name] = valueOf(v)
	}
	return obj
}

func valueOf(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return v.Int32()
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}
