// Package wieerr defines the sentinel error kinds shared across the runtime.
package wieerr

import "errors"

var (
	// ErrResourceNotFound is returned when a named resource is missing from the archive.
	ErrResourceNotFound = errors.New("wie: resource not found")
	// ErrOutOfMemory is returned when the guest heap cannot satisfy an allocation.
	ErrOutOfMemory = errors.New("wie: out of memory")
	// ErrInvalidImage is returned when an ELF image fails the loader's structural checks.
	ErrInvalidImage = errors.New("wie: invalid image")
	// ErrUnimplemented is returned by a method table slot that has no behavior yet.
	ErrUnimplemented = errors.New("wie: unimplemented")
	// ErrClassNotFound is returned when a Java class name cannot be resolved.
	ErrClassNotFound = errors.New("wie: class not found")
	// ErrMethodNotFound is returned when a Java method lookup misses.
	ErrMethodNotFound = errors.New("wie: method not found")
	// ErrFieldNotFound is returned when a Java field lookup misses.
	ErrFieldNotFound = errors.New("wie: field not found")
	// ErrInvalidManifest is returned when a vendor app manifest cannot be parsed.
	ErrInvalidManifest = errors.New("wie: invalid manifest")
	// ErrTaskCanceled is returned to a suspended task whose scheduler was stopped.
	ErrTaskCanceled = errors.New("wie: task canceled")
)
