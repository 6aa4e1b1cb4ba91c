// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package session drives the steady-state frame loop: poll for changes,
// apply pending shader rebuilds and module reloads at the frame boundary,
// then invoke the bound entry points against the persistent State.
//
// All mutation of shared structures (building, swapping, entry point
// invocation) happens on the goroutine calling Frame or Run. The
// watcher's notification goroutine only feeds a pending set, so there is no
// concurrent mutation to defend against.
package session

import (
	"context"
	"io/fs"
	"os"
	"time"

	"go.trai.ch/zerr"

	"github.com/gogpu/hotreload"
	"github.com/gogpu/hotreload/bridge"
	"github.com/gogpu/hotreload/device"
	"github.com/gogpu/hotreload/shader"
	"github.com/gogpu/hotreload/watch"
)

// Watch target IDs used by the session.
const (
	shaderTargetID = "shaders"
	moduleTargetID = "module"
)

// DefaultFrameInterval paces Run when the config does not set one (~60 fps).
const DefaultFrameInterval = 16 * time.Millisecond

// Config describes one live session.
type Config struct {
	// ShaderRoot is the directory holding the WGSL tree. It is both the
	// resolution root for #import paths and the recursively watched tree.
	ShaderRoot string

	// ShaderFS, when non-nil, supplies the shader tree instead of
	// ShaderRoot. An embedded tree cannot change, so watching is disabled
	// for shaders; this is the deployment path for targets that ship
	// shaders inside the binary (embed.FS).
	ShaderFS fs.FS

	// ModulePath is the reloadable application module artifact.
	ModulePath string

	// Slots maps slot id to the slot's root shader file, relative to
	// ShaderRoot. At least one slot is required.
	Slots map[string]string

	// Width and Height set the initial viewport recorded in State.
	Width  int
	Height int

	// FrameInterval paces Run. Zero means DefaultFrameInterval.
	FrameInterval time.Duration

	// DisableWatch degrades change detection to a permanent no-op: sources
	// are built once from their current content and never refreshed. This
	// is the mode for deployment targets without filesystem notification.
	DisableWatch bool
}

// validate reports the first configuration problem.
func (c *Config) validate() error {
	if c.ShaderRoot == "" && c.ShaderFS == nil {
		return ErrMissingShaderRoot
	}
	if c.ModulePath == "" {
		return ErrMissingModulePath
	}
	if len(c.Slots) == 0 {
		return ErrNoSlots
	}
	return nil
}

// Session owns the application state and coordinates the live components.
// It is confined to one goroutine.
type Session struct {
	cfg     Config
	state   *hotreload.State
	shaders *shader.BuildCache
	bridge  *bridge.Bridge
	watcher watch.Watcher

	started time.Time
}

// New builds a session: it resolves and compiles every configured shader
// slot, performs the initial module load, and starts watching for changes.
//
// Initial failures are fatal here: a session cannot start
// without a bound module and a first good artifact per slot. Once New has
// returned, later failures are recoverable and the loop keeps rendering
// last-good artifacts.
func New(cfg Config, compiler device.Compiler, diags device.DiagnosticSource) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, zerr.Wrap(err, "invalid session config")
	}

	fsys := cfg.ShaderFS
	if fsys == nil {
		fsys = os.DirFS(cfg.ShaderRoot)
	}

	s := &Session{
		cfg:     cfg,
		state:   hotreload.NewState(cfg.Width, cfg.Height),
		shaders: shader.NewBuildCache(fsys, compiler, diags),
		bridge:  bridge.New(cfg.ModulePath),
	}

	for slotID, root := range cfg.Slots {
		if _, err := s.shaders.Refresh(slotID, root); err != nil {
			s.shaders.Release()
			return nil, zerr.With(zerr.Wrap(err, "initial shader build failed"), "slot", slotID)
		}
	}

	if err := s.bridge.Load(); err != nil {
		s.shaders.Release()
		return nil, zerr.Wrap(err, "initial module load failed")
	}

	watcher, err := s.newWatcher()
	if err != nil {
		s.shaders.Release()
		return nil, zerr.Wrap(err, "starting change watcher")
	}
	s.watcher = watcher
	s.started = time.Now()

	hotreload.Logger().Info("session: started",
		"module", s.bridge.Name(), "slots", len(cfg.Slots), "watching", !cfg.DisableWatch)
	return s, nil
}

func (s *Session) newWatcher() (watch.Watcher, error) {
	if s.cfg.DisableWatch {
		return watch.Disabled(), nil
	}
	if s.cfg.ShaderFS != nil {
		// Embedded trees cannot change; only the module artifact is live.
		return watch.New(
			watch.Target{ID: moduleTargetID, Path: s.cfg.ModulePath, Kind: watch.ModuleArtifact},
		)
	}
	return watch.New(
		watch.Target{ID: shaderTargetID, Path: s.cfg.ShaderRoot, Kind: watch.ShaderTree},
		watch.Target{ID: moduleTargetID, Path: s.cfg.ModulePath, Kind: watch.ModuleArtifact},
	)
}

// Frame runs one iteration: poll, apply pending rebuilds and reloads, then
// invoke the current entry points with the given frame delta.
//
// All rebuild/reload failures inside a frame are recoverable: they are
// logged with enough context to act on and the frame proceeds on the
// previous artifacts and module revision. Frame itself only returns an
// error for conditions that invalidate the session.
func (s *Session) Frame(dt float64) error {
	// Changes are applied before this frame's entry points run, so a frame
	// never mixes a stale module with fresh shader bookkeeping.
	for _, targetID := range s.watcher.Poll() {
		switch targetID {
		case shaderTargetID:
			s.refreshSlots()
		case moduleTargetID:
			s.bridge.RequestReload()
		}
	}

	// A failed reload is recoverable: the previous revision keeps serving
	// and the bridge has already logged the cause.
	_, _ = s.bridge.TryReload()

	s.state.Frame++
	s.state.Time += dt
	s.bridge.Update(s.state, dt)
	s.bridge.Render(s.state, s.renderContext())
	return nil
}

// refreshSlots re-resolves and rebuilds every slot. Per-slot failures keep
// that slot on its last good artifact.
func (s *Session) refreshSlots() {
	for slotID, root := range s.cfg.Slots {
		if _, err := s.shaders.Refresh(slotID, root); err != nil {
			hotreload.Logger().Warn("session: shader refresh failed",
				"slot", slotID, "root", root, "err", err)
		}
	}
}

// renderContext assembles the module's view of the current artifacts.
func (s *Session) renderContext() *hotreload.RenderContext {
	rc := &hotreload.RenderContext{
		Shaders:  make(map[string]device.ShaderModuleID, len(s.cfg.Slots)),
		Revision: s.bridge.Revision(),
	}
	for slotID := range s.cfg.Slots {
		if art := s.shaders.Artifact(slotID); art != nil {
			rc.Shaders[slotID] = art.Module
		}
	}
	return rc
}

// Run drives Frame on a ticker until ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	interval := s.cfg.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := s.Frame(dt); err != nil {
				return zerr.Wrap(err, "frame failed")
			}
		}
	}
}

// State exposes the session-owned application state, mainly for tests and
// host UI overlays. The session goroutine remains the only writer.
func (s *Session) State() *hotreload.State { return s.state }

// Shaders exposes the build cache for per-slot artifact and error queries.
func (s *Session) Shaders() *shader.BuildCache { return s.shaders }

// Bridge exposes the module bridge for revision and name queries.
func (s *Session) Bridge() *bridge.Bridge { return s.bridge }

// Close stops watching and releases compiled artifacts.
func (s *Session) Close() error {
	err := s.watcher.Close()
	s.shaders.Release()
	return err
}
