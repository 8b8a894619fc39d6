package resource

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/mirusu400/wie/internal/wieerr"
)

func TestAddAndLookup(t *testing.T) {
	tbl := New()
	id := tbl.Add("binary.mod", []byte{1, 2, 3})

	if id != 0 {
		t.Fatalf("expected first id to be 0, got %d", id)
	}
	if tbl.Size(id) != 3 {
		t.Fatalf("expected size 3, got %d", tbl.Size(id))
	}

	got, ok := tbl.ID("binary.mod")
	if !ok || got != id {
		t.Fatalf("ID lookup failed: got=%d ok=%v", got, ok)
	}
}

func TestMustIDNotFound(t *testing.T) {
	tbl := New()
	_, err := tbl.MustID("missing")
	if !errors.Is(err, wieerr.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestAddFromZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"app_info", "binary.mod", "icon.png"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip.Create: %v", err)
		}
		if _, err := w.Write([]byte(name)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}

	tbl := New()
	if err := tbl.AddFromZip(buf.Bytes()); err != nil {
		t.Fatalf("AddFromZip: %v", err)
	}

	if tbl.Len() != 3 {
		t.Fatalf("expected 3 resources, got %d", tbl.Len())
	}
	id, ok := tbl.ID("binary.mod")
	if !ok {
		t.Fatalf("expected binary.mod to be found")
	}
	if string(tbl.Data(id)) != "binary.mod" {
		t.Fatalf("unexpected data: %q", tbl.Data(id))
	}
}
