package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
)

const sample = `{"parent_asin":"B01","price":"$19.99"}
{"parent_asin":"B02","price":null}

{"parent_asin":"B03"}
`

func collect(t *testing.T, path string) []string {
	t.Helper()
	var got []string
	err := Each(context.Background(), path, func(_ int, data []byte) error {
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("Each(%s): %v", filepath.Base(path), err)
	}
	return got
}

func TestEach_JSONLVariants(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "meta.jsonl")
	if err := os.WriteFile(plain, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(sample))
	_ = gw.Close()
	gzPath := filepath.Join(dir, "meta.jsonl.gz")
	if err := os.WriteFile(gzPath, gz.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = zw.Write([]byte(sample))
	_ = zw.Close()
	zstPath := filepath.Join(dir, "meta.jsonl.zst")
	if err := os.WriteFile(zstPath, zs.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	want := collect(t, plain)
	if len(want) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(want), want)
	}
	for _, p := range []string{gzPath, zstPath} {
		if got := collect(t, p); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", filepath.Base(p), got, want)
		}
	}
}

func TestEach_StopsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.jsonl")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	stop := errors.New("stop")
	err := Each(context.Background(), path, func(int, []byte) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"Electronics.jsonl":         FormatJSONL,
		"meta_Electronics.jsonl.gz": FormatJSONLGzip,
		"reviews.JSONL.ZST":         FormatJSONLZstd,
		"part-0001.parquet":         FormatParquet,
	}
	for name, want := range tests {
		got, err := DetectFormat(name)
		if err != nil || got != want {
			t.Errorf("DetectFormat(%s) = %q, %v; want %q", name, got, err, want)
		}
	}
	if _, err := DetectFormat("meta.csv"); err == nil {
		t.Error("expected error for csv")
	}
}

type rawRow struct {
	ParentASIN string   `parquet:"parent_asin"`
	Title      string   `parquet:"title"`
	Price      *float64 `parquet:"price,optional"`
	Features   []string `parquet:"features,list"`
	Rating     int64    `parquet:"rating"`
}

func TestEach_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	price := 24.5
	w := parquet.NewGenericWriter[rawRow](f)
	if _, err := w.Write([]rawRow{
		{ParentASIN: "B01", Title: "Buds", Price: &price, Features: []string{"Bluetooth 5.3", "IPX7"}, Rating: 5},
		{ParentASIN: "B02", Title: "Cans", Rating: 3},
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	type decoded struct {
		ParentASIN string   `json:"parent_asin"`
		Title      string   `json:"title"`
		Price      *float64 `json:"price"`
		Features   []string `json:"features"`
		Rating     int      `json:"rating"`
	}
	var got []decoded
	err = Each(context.Background(), path, func(_ int, data []byte) error {
		var d decoded
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ParentASIN != "B01" || got[0].Price == nil || *got[0].Price != 24.5 || got[0].Rating != 5 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if !reflect.DeepEqual(got[0].Features, []string{"Bluetooth 5.3", "IPX7"}) {
		t.Errorf("features = %v", got[0].Features)
	}
	if got[1].Price != nil || len(got[1].Features) != 0 {
		t.Errorf("row 1 = %+v", got[1])
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>Deep <b>bass</b></p><ul><li>40h battery</li></ul>", "Deep bass 40h battery"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>alert(1)</script>Safe", "Safe"},
	}
	for _, tc := range tests {
		if got := PlainText(tc.in); got != tc.want {
			t.Errorf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
