// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bridge owns the reloadable application module and the entry points
// bound from it.
//
// The module is a single Go source file run by the yaegi interpreter. Each
// (re)load builds a fresh interpreter, evaluates the source, and looks up a
// fixed set of entry points by name. Binding is all-or-nothing: if any
// required symbol is missing, the previous module keeps serving and the new
// interpreter is discarded. Dropping the old interpreter is the Go
// equivalent of unloading a dynamic library: the old code becomes
// unreachable and is collected.
//
// The application State is never owned here. The bridge passes the session's
// pointer into whichever revision is bound; a swap changes only the code
// operating on the value.
package bridge

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/gogpu/hotreload"
)

// Status is the bridge's position in its reload state machine.
type Status int

const (
	// Stable: the current module is bound and its entry points are valid.
	Stable Status = iota

	// ReloadPending: the artifact changed; the next frame boundary swaps.
	ReloadPending

	// Swapping: a load is in progress. Never observed from the session
	// goroutine, which drives the swap synchronously.
	Swapping
)

// Result reports what TryReload did.
type Result int

const (
	// NoChange: no reload was pending.
	NoChange Result = iota

	// Reloaded: a new module revision is bound.
	Reloaded
)

// requiredEntryPoints names the fixed entry-point set, for error messages
// and fail-fast checks. The set and the signatures are agreed at build time;
// the bridge never infers signatures at runtime.
var requiredEntryPoints = []string{"Name", "Version", "Update", "Render"}

// entryTable is the bound entry-point set of one module revision. It is
// repopulated as a whole on each successful swap, never partially.
type entryTable struct {
	name    func() string
	version func() int
	update  func(*hotreload.State, float64)
	render  func(*hotreload.State, *hotreload.RenderContext)
}

// loadedModule is one successfully loaded module revision.
type loadedModule struct {
	interp  *interp.Interpreter
	entries entryTable
}

// Bridge loads, swaps, and invokes the reloadable application module.
// It is confined to the session goroutine.
type Bridge struct {
	path     string
	status   Status
	current  *loadedModule
	revision int
}

// New creates a bridge for the module artifact at path. Nothing is loaded
// yet; call Load before the first frame.
func New(path string) *Bridge {
	return &Bridge{path: path}
}

// Load performs the initial module load. There is no previous revision to
// fall back to, so the caller must treat an error as fatal: a session cannot
// start without a bound module.
func (b *Bridge) Load() error {
	mod, err := b.load()
	if err != nil {
		return err
	}
	b.install(mod)
	return nil
}

// RequestReload notes that the module artifact changed. The swap itself
// happens at the next safe point, when TryReload is called between frames,
// never mid-call.
func (b *Bridge) RequestReload() {
	if b.current != nil {
		b.status = ReloadPending
	}
}

// TryReload swaps in the new module revision if a reload is pending.
//
// A failed load or a missing entry point is recoverable: the bridge returns
// to Stable with the previous module still bound, and the error describes
// what was wrong (the artifact path, the missing symbol name). The swap is
// all-or-nothing; entry points are never left half-bound.
func (b *Bridge) TryReload() (Result, error) {
	if b.status != ReloadPending {
		return NoChange, nil
	}

	b.status = Swapping
	mod, err := b.load()
	if err != nil {
		b.status = Stable
		hotreload.Logger().Warn("bridge: reload failed, keeping previous revision",
			"path", b.path, "revision", b.revision, "err", err)
		return NoChange, err
	}

	b.install(mod)
	return Reloaded, nil
}

// install binds a freshly loaded module and drops the previous one.
func (b *Bridge) install(mod *loadedModule) {
	b.current = mod
	b.revision++
	b.status = Stable
	hotreload.Logger().Info("bridge: module loaded",
		"name", mod.entries.name(), "version", mod.entries.version(), "revision", b.revision)
}

// Status returns the bridge's current state-machine position.
func (b *Bridge) Status() Status { return b.status }

// Revision counts successful loads, starting at 1 for the initial Load.
func (b *Bridge) Revision() int { return b.revision }

// Name returns the bound module's self-reported name.
// Valid only after a successful Load.
func (b *Bridge) Name() string { return b.current.entries.name() }

// ModuleVersion returns the bound module's self-reported version marker.
// Valid only after a successful Load.
func (b *Bridge) ModuleVersion() int { return b.current.entries.version() }

// Update invokes the bound module's per-frame update against the session's
// state. A panic inside the module is contained and logged: a module being
// edited live should not take the session down.
func (b *Bridge) Update(s *hotreload.State, dt float64) {
	defer b.contain("Update")
	b.current.entries.update(s, dt)
}

// Render invokes the bound module's render entry point.
func (b *Bridge) Render(s *hotreload.State, rc *hotreload.RenderContext) {
	defer b.contain("Render")
	b.current.entries.render(s, rc)
}

// contain recovers a panic raised inside module code.
func (b *Bridge) contain(entry string) {
	if r := recover(); r != nil {
		hotreload.Logger().Warn("bridge: module panicked",
			"entry", entry, "revision", b.revision, "panic", r)
	}
}

// load reads and evaluates the module artifact and binds its entry points.
// It touches none of the bridge's fields, so a failure leaves the current
// revision untouched.
func (b *Bridge) load() (*loadedModule, error) {
	src, err := os.ReadFile(b.path)
	if err != nil {
		return nil, &LoadFailureError{Reason: fmt.Sprintf("reading %s", b.path), err: err}
	}

	stripped := stripBuildDirectives(src)
	pkg, err := modulePackage(stripped)
	if err != nil {
		return nil, &LoadFailureError{Reason: fmt.Sprintf("reading package clause of %s", b.path), err: err}
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &LoadFailureError{Reason: "installing stdlib symbols", err: err}
	}
	if err := i.Use(hostExports()); err != nil {
		return nil, &LoadFailureError{Reason: "installing harness symbols", err: err}
	}

	if _, err := i.Eval(string(stripped)); err != nil {
		return nil, &LoadFailureError{Reason: fmt.Sprintf("evaluating %s", b.path), err: err}
	}

	var t entryTable
	binders := map[string]func(v any) bool{
		"Name":    func(v any) bool { t.name, _ = v.(func() string); return t.name != nil },
		"Version": func(v any) bool { t.version, _ = v.(func() int); return t.version != nil },
		"Update": func(v any) bool {
			t.update, _ = v.(func(*hotreload.State, float64))
			return t.update != nil
		},
		"Render": func(v any) bool {
			t.render, _ = v.(func(*hotreload.State, *hotreload.RenderContext))
			return t.render != nil
		},
	}

	// The interpreter exports module symbols under the module's package
	// name, so the lookup must be qualified.
	for _, name := range requiredEntryPoints {
		v, err := i.Eval(pkg + "." + name)
		if err != nil {
			return nil, &MissingSymbolError{Name: name}
		}
		if !binders[name](v.Interface()) {
			// Exported under the right name but with the wrong signature.
			// The signature set is fixed at build time, so this is an
			// integration error; report it like a missing symbol.
			return nil, &MissingSymbolError{Name: name}
		}
	}

	return &loadedModule{interp: i, entries: t}, nil
}

// modulePackage reports the package name declared by the module source. The
// bridge places no constraint on the name itself; whatever the module
// declares is used to qualify entry-point lookups.
func modulePackage(src []byte) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.PackageClauseOnly)
	if err != nil {
		return "", err
	}
	return f.Name.Name, nil
}

// stripBuildDirectives removes leading build constraints (//go:build,
// // +build), which are meaningful to the Go toolchain but can confuse the
// interpreter.
func stripBuildDirectives(src []byte) []byte {
	lines := strings.Split(string(src), "\n")
	i := 0
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if strings.HasPrefix(l, "package ") {
			break
		}
		if strings.HasPrefix(l, "//go:build") || strings.HasPrefix(l, "// +build") || l == "" {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return src
	}
	return []byte(strings.Join(lines[i:], "\n"))
}
