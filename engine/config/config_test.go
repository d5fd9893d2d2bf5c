package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Renderer.VSync)
	assert.False(t, cfg.Renderer.Overlay)
	assert.Equal(t, float32(5), cfg.Camera.Radius)
	assert.Equal(t, float32(90), cfg.Camera.FOV)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "oxy.toml", `
log_level = "debug"

[window]
title = "demo"
width = 800

[renderer]
vsync = false
overlay = true

[engine]
frame_limit = 144
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep defaults")
	assert.False(t, cfg.Renderer.VSync)
	assert.True(t, cfg.Renderer.Overlay)
	assert.Equal(t, 144.0, cfg.Engine.FrameLimit)
	assert.Equal(t, 60.0, cfg.Engine.TickRate)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadYAML(t *testing.T) {
	for _, name := range []string{"oxy.yaml", "oxy.YML"} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, `
renderer:
  software_renderer: true
camera:
  radius: 8
  fov: 60
`)
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.True(t, cfg.Renderer.SoftwareRenderer)
			assert.Equal(t, float32(8), cfg.Camera.Radius)
			assert.Equal(t, float32(60), cfg.Camera.FOV)
			assert.Equal(t, float32(1000), cfg.Camera.Far)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown extension", "oxy.json", "{}", "unsupported file type"},
		{"bad toml", "oxy.toml", "window = [", "decode"},
		{"bad yaml", "oxy.yaml", "window: [", "decode"},
		{"invalid size", "oxy.toml", "[window]\nwidth = -1", "window size"},
		{"invalid planes", "oxy.yaml", "camera:\n  near: 10\n  far: 1", "near < far"},
		{"invalid fov", "oxy.yaml", "camera:\n  fov: 180", "fov"},
		{"invalid level", "oxy.toml", `log_level = "loud"`, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
