package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hotreload/device"
)

const validWGSL = "@compute @workgroup_size(1)\nfn main() {}\n"

const moduleV1 = `package app

import "github.com/gogpu/hotreload"

func Name() string { return "demo" }

func Version() int { return 1 }

func Update(s *hotreload.State, dt float64) {
	s.Values["ticks"] = s.Values["ticks"] + 1
}

func Render(s *hotreload.State, rc *hotreload.RenderContext) {
	if rc.Shader("main").IsValid() {
		s.Values["rendered"] = s.Values["rendered"] + 1
	}
}
`

const moduleV2 = `package app

import "github.com/gogpu/hotreload"

func Name() string { return "demo" }

func Version() int { return 2 }

func Update(s *hotreload.State, dt float64) {
	s.Values["ticks"] = s.Values["ticks"] + 100
}

func Render(s *hotreload.State, rc *hotreload.RenderContext) {}
`

type fakeDevice struct {
	nextID    uint64
	created   int
	destroyed int
}

func (d *fakeDevice) CreateShaderModule(spirv []uint32, label string) (device.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return device.InvalidShaderModule, fmt.Errorf("empty SPIR-V bytecode")
	}
	d.nextID++
	d.created++
	return device.ShaderModuleID(d.nextID), nil
}

func (d *fakeDevice) DestroyShaderModule(device.ShaderModuleID) { d.destroyed++ }

func (d *fakeDevice) PollDiagnostic() *device.Diagnostic { return nil }

// newFixture lays out a shader tree and module artifact and returns a ready
// session config.
func newFixture(t *testing.T) (Config, string, string) {
	t.Helper()
	root := t.TempDir()
	shaderDir := filepath.Join(root, "shaders")
	require.NoError(t, os.Mkdir(shaderDir, 0o755))
	shaderMain := filepath.Join(shaderDir, "main.wgsl")
	require.NoError(t, os.WriteFile(shaderMain, []byte(validWGSL), 0o644))

	modulePath := filepath.Join(root, "logic.go")
	require.NoError(t, os.WriteFile(modulePath, []byte(moduleV1), 0o644))

	cfg := Config{
		ShaderRoot: shaderDir,
		ModulePath: modulePath,
		Slots:      map[string]string{"main": "main.wgsl"},
		Width:      640,
		Height:     480,
	}
	return cfg, shaderMain, modulePath
}

// frameUntil runs frames until cond holds or the deadline passes.
func frameUntil(t *testing.T, s *Session, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		require.NoError(t, s.Frame(0.016))
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return false
}

func TestConfigValidation(t *testing.T) {
	dev := &fakeDevice{}

	_, err := New(Config{}, dev, dev)
	assert.ErrorIs(t, err, ErrMissingShaderRoot)

	_, err = New(Config{ShaderRoot: "x"}, dev, dev)
	assert.ErrorIs(t, err, ErrMissingModulePath)

	_, err = New(Config{ShaderRoot: "x", ModulePath: "y"}, dev, dev)
	assert.ErrorIs(t, err, ErrNoSlots)
}

func TestNewBuildsSlotsAndLoadsModule(t *testing.T) {
	cfg, _, _ := newFixture(t)
	dev := &fakeDevice{}

	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 1, dev.created)
	assert.NotNil(t, s.Shaders().Artifact("main"))
	assert.Equal(t, "demo", s.Bridge().Name())
	assert.Equal(t, 1, s.Bridge().Revision())
}

func TestNewFailsWithoutInitialModule(t *testing.T) {
	cfg, _, modulePath := newFixture(t)
	require.NoError(t, os.Remove(modulePath))
	dev := &fakeDevice{}

	_, err := New(cfg, dev, dev)
	require.Error(t, err, "first load failure must be fatal: no prior module to fall back to")
}

func TestNewFailsOnBrokenInitialShader(t *testing.T) {
	cfg, shaderMain, _ := newFixture(t)
	require.NoError(t, os.WriteFile(shaderMain, []byte("fn broken( {\n"), 0o644))
	dev := &fakeDevice{}

	_, err := New(cfg, dev, dev)
	require.Error(t, err, "a slot with no first good artifact cannot start")
}

func TestFrameInvokesEntryPoints(t *testing.T) {
	cfg, _, _ := newFixture(t)
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Frame(0.016))
	require.NoError(t, s.Frame(0.016))

	st := s.State()
	assert.Equal(t, uint64(2), st.Frame)
	assert.Equal(t, 2.0, st.Values["ticks"])
	assert.Equal(t, 2.0, st.Values["rendered"], "render context must expose the compiled slot")
	assert.InDelta(t, 0.032, st.Time, 1e-9)
}

func TestModuleReloadEndToEnd(t *testing.T) {
	cfg, _, modulePath := newFixture(t)
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Frame(0.016))
	ticksBefore := s.State().Values["ticks"]
	require.Equal(t, 1.0, ticksBefore)

	require.NoError(t, os.WriteFile(modulePath, []byte(moduleV2), 0o644))

	ok := frameUntil(t, s, 5*time.Second, func() bool {
		return s.Bridge().Revision() == 2
	})
	require.True(t, ok, "module change was never picked up")

	// Version marker proves the new implementation is live; accumulated
	// state from before the swap is intact.
	assert.Equal(t, 2, s.Bridge().ModuleVersion())
	st := s.State()
	assert.GreaterOrEqual(t, st.Values["ticks"], ticksBefore)

	before := st.Values["ticks"]
	require.NoError(t, s.Frame(0.016))
	assert.Equal(t, before+100, st.Values["ticks"], "post-swap frames must run the new revision")
}

func TestShaderEditRebuildsSlot(t *testing.T) {
	cfg, shaderMain, _ := newFixture(t)
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	first := s.Shaders().Artifact("main").Module
	require.NoError(t, os.WriteFile(shaderMain, []byte("@compute @workgroup_size(2)\nfn main() {}\n"), 0o644))

	ok := frameUntil(t, s, 5*time.Second, func() bool {
		return s.Shaders().Artifact("main").Module != first
	})
	require.True(t, ok, "shader edit was never rebuilt")
	assert.Equal(t, 2, dev.created)
}

func TestBrokenShaderKeepsRenderingLastGood(t *testing.T) {
	cfg, shaderMain, _ := newFixture(t)
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	good := s.Shaders().Artifact("main").Module
	require.NoError(t, os.WriteFile(shaderMain, []byte("fn broken( {\n"), 0o644))

	ok := frameUntil(t, s, 5*time.Second, func() bool {
		return s.Shaders().Err("main") != nil
	})
	require.True(t, ok, "broken shader never surfaced an error")

	// Frames keep running against the last good artifact.
	assert.Equal(t, good, s.Shaders().Artifact("main").Module)
	require.NoError(t, s.Frame(0.016))
}

func TestDisabledWatchNeverRefreshes(t *testing.T) {
	cfg, shaderMain, modulePath := newFixture(t)
	cfg.DisableWatch = true
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.WriteFile(shaderMain, []byte("@compute @workgroup_size(4)\nfn main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(modulePath, []byte(moduleV2), 0o644))
	time.Sleep(200 * time.Millisecond)

	for range 5 {
		require.NoError(t, s.Frame(0.016))
	}
	assert.Equal(t, 1, dev.created, "disabled watching must never trigger rebuilds")
	assert.Equal(t, 1, s.Bridge().Revision())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg, _, _ := newFixture(t)
	cfg.FrameInterval = time.Millisecond
	dev := &fakeDevice{}
	s, err := New(cfg, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, s.State().Frame, uint64(0), "Run should have driven frames")
}

func TestEmbeddedShaderTree(t *testing.T) {
	dir := t.TempDir()
	modulePath := filepath.Join(dir, "logic.go")
	require.NoError(t, os.WriteFile(modulePath, []byte(moduleV1), 0o644))

	fsys := fstest.MapFS{
		"main.wgsl": &fstest.MapFile{Data: []byte(validWGSL)},
	}
	dev := &fakeDevice{}
	s, err := New(Config{
		ShaderFS:   fsys,
		ModulePath: modulePath,
		Slots:      map[string]string{"main": "main.wgsl"},
		Width:      640,
		Height:     480,
	}, dev, dev)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Frame(0.016))
	assert.Equal(t, 1, dev.created)
	assert.Equal(t, float64(1), s.State().Values["rendered"])
}
