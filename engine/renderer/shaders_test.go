package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEmbeddedShaders(t *testing.T) {
	tests := []struct {
		name   string
		source string
		entry  string
	}{
		{name: "vertex", source: VertexShaderSource, entry: vertexEntryPoint},
		{name: "pixel", source: PixelShaderSource, entry: pixelEntryPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc, err := CompileShaderToByteCode(tt.source, tt.entry)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(bc.Code), 20)
			assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(bc.Code))
			assert.Equal(t, tt.entry, bc.EntryPoint)
			assert.Equal(t, tt.source, bc.Source, "backends that take WGSL upload the source")
		})
	}
}

func TestCompileShaderReportsErrors(t *testing.T) {
	_, err := CompileShaderToByteCode("fn broken( {", "vs_main")
	assert.ErrorContains(t, err, "compile vs_main")

	assert.Panics(t, func() { mustCompileShader("fn broken( {", "ps_main") })
}
