package renderer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	Logger().Info("selected adapter", "name", "Fake GPU")
	assert.Contains(t, buf.String(), "name=\"Fake GPU\"")

	SetLogger(nil)
	buf.Reset()
	Logger().Error("dropped")
	assert.Empty(t, buf.String())
	assert.False(t, Logger().Enabled(t.Context(), slog.LevelError))
}
