// Package resource implements the insertion-ordered resource table backing
// a loaded app: the flat bag of named byte blobs (binaries, images,
// manifests) that ships inside a vendor archive, addressed both by name and
// by a stable small-integer id assigned in insertion order.
package resource

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/mirusu400/wie/internal/wieerr"
)

type entry struct {
	name string
	data []byte
}

// Table is an insertion-ordered (name, data) store. IDs are the entry's
// index at insertion time and never change, so they remain valid handles
// even after later entries are added.
type Table struct {
	entries []entry
}

// New returns an empty resource table.
func New() *Table {
	return &Table{}
}

// Add appends a resource, returning its id.
func (t *Table) Add(name string, data []byte) uint32 {
	id := uint32(len(t.entries))
	t.entries = append(t.entries, entry{name: name, data: data})
	return id
}

// ID looks up the id of the first resource added under name.
func (t *Table) ID(name string) (uint32, bool) {
	for i, e := range t.entries {
		if e.name == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// MustID is like ID but wraps wieerr.ErrResourceNotFound when missing.
func (t *Table) MustID(name string) (uint32, error) {
	id, ok := t.ID(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", wieerr.ErrResourceNotFound, name)
	}
	return id, nil
}

// Size returns the byte length of resource id.
func (t *Table) Size(id uint32) uint32 {
	return uint32(len(t.entries[id].data))
}

// Data returns the bytes of resource id.
func (t *Table) Data(id uint32) []byte {
	return t.entries[id].data
}

// Name returns the name resource id was added under.
func (t *Table) Name(id uint32) string {
	return t.entries[id].name
}

// Names iterates every resource name in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.name
	}
	return out
}

// Len returns the number of resources currently in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// AddFromZip unpacks every file in a zip archive into the table, in the
// order the zip's central directory lists them.
func (t *Table) AddFromZip(zipData []byte) error {
	r, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		t.Add(f.Name, data)
	}
	return nil
}
