package dump

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/vitrina/vitrina/pkg/core"
)

func collect(t *testing.T, src core.Source) []core.Figure {
	t.Helper()
	ch := make(chan core.Figure, 16)
	done := make(chan []core.Figure)
	go func() {
		var out []core.Figure
		for f := range ch {
			out = append(out, f)
		}
		done <- out
	}()

	if err := src.FetchFigures(context.Background(), ch); err != nil {
		t.Fatalf("fetching figures: %v", err)
	}
	close(ch)
	return <-done
}

const sampleDump = `{"id":"dump-1","manufacturer":"Good Smile Company","name":"Hatsune Miku","scale":"1/7"}
{"manufacturer":"Kotobukiya","name":"Asuka Langley"}
not json
{"manufacturer":"","name":"No Maker"}
`

func TestFetchPlainDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figures.jsonl")
	if err := os.WriteFile(path, []byte(sampleDump), 0600); err != nil {
		t.Fatalf("writing dump: %v", err)
	}

	src, err := NewSource("test_dump", &Config{Owner: "u1", Path: path})
	if err != nil {
		t.Fatalf("creating source: %v", err)
	}

	figures := collect(t, src)
	if len(figures) != 2 {
		t.Fatalf("got %d figures, want 2 (malformed rows skipped)", len(figures))
	}
	if figures[0].ID != "dump-1" || figures[0].OwnerID != "u1" {
		t.Errorf("first figure = %+v", figures[0])
	}
	if figures[1].ID == "" {
		t.Error("expected minted id for row without one")
	}
}

func TestFetchZstdDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figures.jsonl.zst")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating dump file: %v", err)
	}
	encoder, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("creating zstd writer: %v", err)
	}
	if _, err := encoder.Write([]byte(sampleDump)); err != nil {
		t.Fatalf("writing compressed dump: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}

	src, err := NewSource("test_dump", &Config{Owner: "u1", Path: path})
	if err != nil {
		t.Fatalf("creating source: %v", err)
	}

	figures := collect(t, src)
	if len(figures) != 2 {
		t.Fatalf("got %d figures from compressed dump, want 2", len(figures))
	}
}

func TestMissingPath(t *testing.T) {
	src, err := NewSource("test_dump", nil)
	if err != nil {
		t.Fatalf("creating source: %v", err)
	}
	ch := make(chan core.Figure, 1)
	if err := src.FetchFigures(context.Background(), ch); err == nil {
		t.Error("expected error for missing path")
	}
}
