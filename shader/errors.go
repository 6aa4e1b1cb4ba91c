package shader

import (
	"fmt"
	"strings"
)

// CyclicImportError reports an import chain that reached a file already being
// expanded. Chain lists the files in expansion order; the last entry is the
// one that closed the cycle.
type CyclicImportError struct {
	Chain []string
}

func (e *CyclicImportError) Error() string {
	return "shader: cyclic import: " + strings.Join(e.Chain, " -> ")
}

// MissingImportError reports an import directive whose target could not be
// read. ImportedBy is empty when the root file itself is missing.
type MissingImportError struct {
	Path       string
	ImportedBy string
	err        error
}

func (e *MissingImportError) Error() string {
	if e.ImportedBy == "" {
		return fmt.Sprintf("shader: missing source %q", e.Path)
	}
	return fmt.Sprintf("shader: missing import %q (imported by %s)", e.Path, e.ImportedBy)
}

func (e *MissingImportError) Unwrap() error { return e.err }

// BuildError reports a failed shader build for one slot. The message carries
// the compiler or device diagnostic text verbatim.
type BuildError struct {
	Slot    string
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("shader: build failed for slot %q: %s", e.Slot, e.Message)
}
