// Package archive recognizes and unpacks the three vendor container
// formats a WIPI app can ship in (KTF, LGT, SKT), each a zip with a
// vendor-specific text manifest alongside the class/resource data.
package archive

import (
	"bytes"
	"fmt"
)

// Manifest is the KTF/LGT line-oriented "AID:"/"MClass:" format. KTF's
// .adf and LGT's app_info are the same key: value layout (noted directly
// in the original LGT loader as "almost similar to KtfAdf.. can we merge
// these?" — so here they already are the same parser), differing only in
// which file inside the zip carries it.
type Manifest struct {
	AID    string
	MClass string
}

// ParseManifest reads AID: and MClass: lines out of a KTF/LGT manifest
// file. Unknown lines are ignored. The name field the original leaves as
// a TODO (it's EUC-KR encoded in real archives) is not decoded here.
func ParseManifest(data []byte) Manifest {
	var m Manifest

	for _, line := range bytes.Split(data, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("AID:")):
			m.AID = string(bytes.TrimSpace(line[len("AID:"):]))
		case bytes.HasPrefix(line, []byte("MClass:")):
			m.MClass = string(bytes.TrimSpace(line[len("MClass:"):]))
		}
	}
	return m
}

// JadDescriptor holds the "Key-Name: value" lines of an SKT .jad-style
// descriptor, keyed by name, e.g. "MIDlet-1: Name, icon.png, com.example.Main".
type JadDescriptor map[string]string

// ParseJad parses a minimal JAD-like descriptor: one "Key: value" pair
// per line, blank lines and unrecognized lines ignored.
func ParseJad(data []byte) JadDescriptor {
	d := make(JadDescriptor)
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := string(bytes.TrimSpace(line[:idx]))
		val := string(bytes.TrimSpace(line[idx+1:]))
		if key == "" {
			continue
		}
		d[key] = val
	}
	return d
}

// MainClass returns the MIDlet's entry class out of a "MIDlet-1" field
// shaped "Name, icon, main-class".
func (d JadDescriptor) MainClass() (string, error) {
	entry, ok := d["MIDlet-1"]
	if !ok {
		return "", fmt.Errorf("jad descriptor missing MIDlet-1")
	}
	parts := bytes.Split([]byte(entry), []byte(","))
	if len(parts) < 3 {
		return "", fmt.Errorf("jad MIDlet-1 entry %q malformed", entry)
	}
	return string(bytes.TrimSpace(parts[len(parts)-1])), nil
}
