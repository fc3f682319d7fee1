package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/config"
	"github.com/Carmen-Shannon/oxy-splat/engine"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScene(t *testing.T, dir string, n int) string {
	t.Helper()
	records := make([]splat.Record, n)
	for i := range records {
		f := float32(i)
		records[i] = splat.Record{
			Position: common.Vec3{f, f, f},
			Rotation: common.IdentityQuat,
			Scale:    common.Vec3{0.2, 0.2, 0.2},
			Opacity:  0.75,
			Color:    common.Vec3{0.5, 0.5, 0.5},
			Normal:   common.Vec3{0, 0, 1},
		}
	}
	data, err := splat.EncodePLY(splat.NewTable(records, splat.LayoutSplatV1))
	require.NoError(t, err)
	path := filepath.Join(dir, "scene.ply")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestConvertDensifiesAndExports(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 3)
	ply := filepath.Join(dir, "out.ply")
	pcd := filepath.Join(dir, "out.pcd")

	require.NoError(t, convert(in, config.Default(), convertOptions{plyPath: ply, pcdPath: pcd, factor: 2, seed: 7}))

	data, err := os.ReadFile(ply)
	require.NoError(t, err)
	out, err := splat.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())

	src, err := os.ReadFile(in)
	require.NoError(t, err)
	orig, err := splat.Decode(src)
	require.NoError(t, err)
	want, err := splat.Densify(orig, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, want.Len(), out.Len())

	cloud, err := os.ReadFile(pcd)
	require.NoError(t, err)
	assert.Contains(t, string(cloud), "POINTS 6")
}

func TestConvertRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.ply")
	require.NoError(t, os.WriteFile(in, []byte("not a ply"), 0o600))

	err := convert(in, config.Default(), convertOptions{plyPath: filepath.Join(dir, "out.ply")})
	assert.ErrorIs(t, err, common.ErrFormat)
	assert.NoFileExists(t, filepath.Join(dir, "out.ply"))
}

func TestWatchFileReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, 1)

	changes := make(chan []byte, 8)
	stop, err := watchFile(path, func(data []byte) { changes <- data })
	require.NoError(t, err)
	defer stop()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("reloaded"), 0o600))

	select {
	case data := <-changes:
		assert.Equal(t, "reloaded", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

// stubEngine records the calls made by key bindings.
type stubEngine struct {
	engine.Engine
	submitted []viewer.Command
	quit      int
}

func (s *stubEngine) Submit(cmd viewer.Command) error {
	s.submitted = append(s.submitted, cmd)
	return nil
}

func (s *stubEngine) Quit() { s.quit++ }

func TestKeyBindings(t *testing.T) {
	eng := &stubEngine{}
	keys := keyBindings(eng, "scene.ply", 3)

	keys(common.Key2)
	keys(common.Key1)
	keys(common.KeyS)
	keys(common.KeyR)
	keys(common.KeyEsc)

	require.Len(t, eng.submitted, 3)
	assert.Equal(t, viewer.DisplayModeNormal, eng.submitted[0].Mode)
	assert.Equal(t, viewer.DisplayModeColor, eng.submitted[1].Mode)
	assert.Equal(t, viewer.CommandSuperResolution, eng.submitted[2].Kind)
	assert.Equal(t, 3, eng.submitted[2].Factor)
	assert.Equal(t, 1, eng.quit)
}
