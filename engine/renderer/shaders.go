package renderer

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/gogpu/naga"
)

// VertexShaderSource is the WGSL source of the cube vertex stage. Its DrawConstants
// struct matches GPUDrawConstants and its VertexInput matches GPUVertex.
//
//go:embed shaders/cube_vertex.wgsl
var VertexShaderSource string

// PixelShaderSource is the WGSL source of the cube pixel stage.
//
//go:embed shaders/cube_pixel.wgsl
var PixelShaderSource string

const (
	vertexEntryPoint = "vs_main"
	pixelEntryPoint  = "ps_main"
)

// CompileShaderToByteCode compiles WGSL source into SPIR-V byte-code.
//
// Parameters:
//   - source: the WGSL source text
//   - entryPoint: the stage entry point the pipeline will use
//
// Returns:
//   - driver.ShaderBytecode: the compiled stage
//   - error: the compiler diagnostic if source does not compile
func CompileShaderToByteCode(source, entryPoint string) (driver.ShaderBytecode, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return driver.ShaderBytecode{}, fmt.Errorf("compile %s: %w", entryPoint, err)
	}
	return driver.ShaderBytecode{Code: code, EntryPoint: entryPoint, Source: source}, nil
}

// mustCompileShader compiles an embedded stage. Panics on failure.
func mustCompileShader(source, entryPoint string) driver.ShaderBytecode {
	bc, err := CompileShaderToByteCode(source, entryPoint)
	if err != nil {
		panic(fmt.Sprintf("failed to compile embedded shader: %v", err))
	}
	return bc
}
