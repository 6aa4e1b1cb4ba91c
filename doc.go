// Package hotreload is a development harness for GPU rendering applications:
// it lets WGSL shading code and reloadable application logic change while the
// process keeps running, rebuilding only what changed.
//
// # Overview
//
// The harness is built from five pieces:
//   - shader: resolves #import directives across a WGSL tree into one
//     compilable unit, and keeps the compiled module per slot up to date on
//     the device, falling back to the last good artifact when a build breaks.
//   - watch: turns filesystem events on the shader tree and the reloadable
//     module artifact into coalesced per-target change signals.
//   - bridge: owns the reloadable application module (a Go source file run
//     by the yaegi interpreter) and rebinds its fixed entry-point set on
//     each successful reload.
//   - session: the per-frame driver that polls for changes, applies shader
//     and module swaps at the frame boundary, then invokes the current
//     entry points against the persistent State.
//   - device: the narrow GPU capability surface all of the above compile
//     against; backend/native adapts gogpu/wgpu to it.
//
// The State value in this package is the contract at the center: it is owned
// by the session and merely operated on by whichever module revision is
// currently bound, so reloading code never loses accumulated state.
//
// # Quick Start
//
//	cfg := session.Config{
//	    ShaderRoot: "shaders",
//	    ModulePath: "app/logic.go",
//	    Slots:      map[string]string{"main": "main.wgsl"},
//	}
//	s, err := session.New(cfg, compiler, diagnostics)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	err = s.Run(ctx)
//
// Logging is silent by default; call SetLogger to see rebuilds and reloads:
//
//	hotreload.SetLogger(slog.Default())
package hotreload
