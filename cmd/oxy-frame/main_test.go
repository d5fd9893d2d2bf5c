package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParseConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nvsync = false\noverlay = true\n"), 0o644))

	cfg, err := parseConfig([]string{"-config", path, "-software"})
	require.NoError(t, err)
	assert.False(t, cfg.Renderer.VSync, "file value kept when the flag is unset")
	assert.True(t, cfg.Renderer.Overlay)
	assert.True(t, cfg.Renderer.SoftwareRenderer)

	cfg, err = parseConfig([]string{"-config", path, "-vsync", "-overlay=false"})
	require.NoError(t, err)
	assert.True(t, cfg.Renderer.VSync)
	assert.False(t, cfg.Renderer.Overlay)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := parseConfig([]string{"-nope"})
	assert.Error(t, err)
	_, err = parseConfig([]string{"-config", "oxy.ini"})
	assert.ErrorContains(t, err, "unsupported file type")
}
