package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/mirusu400/wie/internal/config"
	"github.com/mirusu400/wie/internal/resource"
	"github.com/mirusu400/wie/internal/wieerr"
)

// App is a loaded, vendor-normalized application: a resource table holding
// every file the archive shipped, plus enough vendor metadata to locate
// the entry point. For KTF/LGT this is an ARM32 binary module entered
// through internal/core; for SKT there is no binary module at all, just a
// Java main class run directly against internal/javabridge (mirroring the
// original's SKT loader, which skips the ARM core entirely).
type App struct {
	Vendor    config.Vendor
	Resources *resource.Table

	// BinaryModule is the resource name of the ARM32 image to load via
	// internal/core (KTF, LGT). Empty for SKT.
	BinaryModule string

	// MainClass is the Java entry class name (SKT), or the first class
	// internal/javabridge should resolve once the binary module has
	// registered its own classes (KTF, LGT).
	MainClass string
}

// Load detects the vendor container format inside data (a zip file) and
// unpacks it into an App. vendor is a hint from configuration; detection
// still inspects the archive contents and overrides the hint when they
// disagree, since a single .wie save directory may hold apps for more
// than one vendor profile.
func Load(data []byte, vendor config.Vendor) (*App, error) {
	files, err := unzip(data)
	if err != nil {
		return nil, err
	}

	switch {
	case hasFile(files, "app_info"):
		return loadLGT(files)
	case hasFile(files, "__adf__"):
		return loadKTF(files)
	case hasJad(files):
		return loadSKT(files)
	default:
		// Fall back to the configured vendor hint when content alone
		// doesn't disambiguate (e.g. a bare .jar with no manifest).
		switch vendor {
		case config.VendorLGT:
			return loadLGT(files)
		case config.VendorSKT:
			return loadSKT(files)
		default:
			return loadKTF(files)
		}
	}
}

func hasFile(files map[string][]byte, name string) bool {
	_, ok := files[name]
	return ok
}

func hasJad(files map[string][]byte) bool {
	for name := range files {
		if len(name) > 4 && name[len(name)-4:] == ".jad" {
			return true
		}
	}
	return false
}

func unzip(data []byte) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wieerr.ErrInvalidManifest, err)
	}

	files := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		files[f.Name] = body
	}
	return files, nil
}

func populateResources(files map[string][]byte) *resource.Table {
	t := resource.New()
	for name, data := range files {
		t.Add(name, data)
	}
	return t
}

// loadLGT follows wie_vendor_lgt/src/archive.rs exactly: app_info carries
// "AID:"/"MClass:" lines, the binary module ships as "<aid>.bin" inside
// "<aid>.jar", and every file the jar itself contains (it is a nested zip, not a JAR in
// the JVM sense here — it holds the ARM32 module plus resources) is
// flattened into the app's resource table.
func loadLGT(files map[string][]byte) (*App, error) {
	info, ok := files["app_info"]
	if !ok {
		return nil, fmt.Errorf("%w: lgt archive missing app_info", wieerr.ErrInvalidManifest)
	}
	m := ParseManifest(info)

	jar, ok := files[m.AID+".jar"]
	if !ok {
		return nil, fmt.Errorf("%w: lgt archive missing %s.jar", wieerr.ErrInvalidManifest, m.AID)
	}

	inner, err := unzip(jar)
	if err != nil {
		return nil, err
	}

	return &App{
		Vendor:       config.VendorLGT,
		Resources:    populateResources(inner),
		BinaryModule: m.AID + ".bin",
		MainClass:    m.MClass,
	}, nil
}

// loadKTF mirrors loadLGT's manifest shape (the two are the same format,
// per the original's own "almost similar to KtfAdf" remark) but keys off
// a "__adf__" manifest file name and a binary module named "binary.mod",
// matching the .adf naming convention KTF archives use in place of LGT's
// "<aid>.jar".
func loadKTF(files map[string][]byte) (*App, error) {
	info, ok := files["__adf__"]
	if !ok {
		return nil, fmt.Errorf("%w: ktf archive missing __adf__", wieerr.ErrInvalidManifest)
	}
	m := ParseManifest(info)

	const moduleName = "binary.mod"
	if !hasFile(files, moduleName) {
		return nil, fmt.Errorf("%w: ktf archive missing %s", wieerr.ErrInvalidManifest, moduleName)
	}

	return &App{
		Vendor:       config.VendorKTF,
		Resources:    populateResources(files),
		BinaryModule: moduleName,
		MainClass:    m.MClass,
	}, nil
}

// loadSKT follows wie_vendor_skt/src/app.rs: there is no ARM core at all,
// just a JAD descriptor naming a Java main class run directly against the
// class files packed alongside it.
func loadSKT(files map[string][]byte) (*App, error) {
	var descriptor JadDescriptor
	found := false
	for name, data := range files {
		if len(name) > 4 && name[len(name)-4:] == ".jad" {
			descriptor = ParseJad(data)
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: skt archive missing .jad descriptor", wieerr.ErrInvalidManifest)
	}

	main, err := descriptor.MainClass()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wieerr.ErrInvalidManifest, err)
	}

	return &App{
		Vendor:    config.VendorSKT,
		Resources: populateResources(files),
		MainClass: main,
	}, nil
}
