// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader flattens WGSL source trees and keeps compiled shader
// modules up to date on a device.
//
// Source files may begin a line with an import directive:
//
//	#import "common.wgsl"
//
// The directive expands to the full content of the named file, resolved
// relative to the shader root, before the importing file's remaining lines.
// There is no deduplication: importing the same file twice expands it twice,
// exactly like a textual include. Only direct or transitive self-import is
// rejected, since that could never terminate.
//
// Resolution works over an fs.FS, so the same code serves a live directory
// (os.DirFS, editable while the program runs) and a tree embedded in the
// binary (embed.FS, for deployments without a filesystem).
package shader

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// importPrefix introduces an import directive. The directive must start the
// line; an indented or mid-line occurrence is passed through verbatim.
const importPrefix = `#import `

// ResolvedSource is one fully flattened, compiler-ready shader text.
// It is immutable: a later resolution produces a new value.
type ResolvedSource struct {
	// Text is the flattened WGSL source.
	Text string

	// Paths lists every file that contributed, in expansion order. A file
	// imported twice appears twice. Useful for attributing compiler
	// diagnostics back to the original tree.
	Paths []string
}

// Resolve flattens the file named root (and everything it imports,
// recursively) into a single ResolvedSource.
//
// All file content is read fresh from fsys on every call; Resolve holds no
// state between calls, so two calls over unchanged files yield identical
// text.
func Resolve(fsys fs.FS, root string) (*ResolvedSource, error) {
	r := &resolution{fsys: fsys}
	text, err := r.expand(path.Clean(root), "")
	if err != nil {
		return nil, err
	}
	return &ResolvedSource{Text: text, Paths: r.order}, nil
}

// resolution carries the per-call expansion state.
type resolution struct {
	fsys fs.FS

	// stack holds the files currently being expanded, outermost first.
	// Meeting a file already on the stack means a cycle.
	stack []string

	// order records every contribution in expansion order.
	order []string
}

// expand flattens one file depth-first, pre-order: an import directive is
// fully expanded before the importer's remaining lines continue.
func (r *resolution) expand(name, importedBy string) (string, error) {
	if slices.Contains(r.stack, name) {
		chain := append(slices.Clone(r.stack), name)
		return "", &CyclicImportError{Chain: chain}
	}

	raw, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", &MissingImportError{Path: name, ImportedBy: importedBy, err: err}
	}

	r.stack = append(r.stack, name)
	r.order = append(r.order, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	var b strings.Builder
	b.Grow(len(raw))
	for _, line := range sourceLines(string(raw)) {
		if !strings.HasPrefix(line, importPrefix) {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}

		target, err := parseImport(line)
		if err != nil {
			return "", fmt.Errorf("shader: %s: %w", name, err)
		}

		expanded, err := r.expand(target, name)
		if err != nil {
			return "", err
		}

		// Keep the consumed directive as a comment so device diagnostics
		// quoting the flattened source still show where the file came from.
		b.WriteString("//")
		b.WriteString(line)
		b.WriteByte('\n')
		b.WriteString(expanded)
	}
	return b.String(), nil
}

// parseImport extracts the quoted target from an import directive line.
// The target is interpreted relative to the shader root.
func parseImport(line string) (string, error) {
	parts := strings.Split(line, `"`)
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("malformed import directive %q: expected #import \"file\"", line)
	}
	target := path.Clean(parts[1])
	if !fs.ValidPath(target) {
		return "", fmt.Errorf("malformed import directive %q: invalid path", line)
	}
	return target, nil
}

// sourceLines splits text into lines without the trailing terminator,
// treating a final newline as a terminator rather than an empty last line.
func sourceLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
