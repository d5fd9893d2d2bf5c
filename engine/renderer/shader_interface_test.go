package renderer

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedStages() (vs, ps driver.ShaderBytecode) {
	return driver.ShaderBytecode{Source: VertexShaderSource, EntryPoint: vertexEntryPoint},
		driver.ShaderBytecode{Source: PixelShaderSource, EntryPoint: pixelEntryPoint}
}

func TestEmbeddedShadersMatchPipeline(t *testing.T) {
	vs, ps := embeddedStages()
	require.NoError(t, checkShaderInterface(vs, ps, rootSignatureDesc, VertexInputLayout))
}

func TestShaderInterfaceMismatches(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(vs, ps *driver.ShaderBytecode, root *driver.RootSignatureDesc, layout *[]driver.InputElement)
		wantErr string
	}{
		{
			name: "entry point",
			mutate: func(vs, _ *driver.ShaderBytecode, _ *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				vs.EntryPoint = "main"
			},
			wantErr: `no entry point "main"`,
		},
		{
			name: "constants size",
			mutate: func(_, _ *driver.ShaderBytecode, root *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				root.Parameters = []driver.RootParameter{
					{Type: driver.RootParameterConstants, Visibility: driver.ShaderVisibilityVertex, Num32BitValues: 32},
					rootSignatureDesc.Parameters[rootParamTexture],
				}
			},
			wantErr: "uniform is 192 bytes, root constants are 128",
		},
		{
			name: "missing parameter",
			mutate: func(_, _ *driver.ShaderBytecode, root *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				root.Parameters = rootSignatureDesc.Parameters[:1]
			},
			wantErr: "no root parameter 1",
		},
		{
			name: "visibility",
			mutate: func(_, _ *driver.ShaderBytecode, root *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				root.Parameters = []driver.RootParameter{
					rootSignatureDesc.Parameters[rootParamConstants],
					{Type: driver.RootParameterDescriptorTable, Visibility: driver.ShaderVisibilityVertex, NumDescriptors: 1},
				}
			},
			wantErr: "not visible",
		},
		{
			name: "no sampler",
			mutate: func(_, _ *driver.ShaderBytecode, root *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				root.StaticSamplers = nil
			},
			wantErr: "no static sampler",
		},
		{
			name: "table too wide",
			mutate: func(_, _ *driver.ShaderBytecode, root *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				root.Parameters = []driver.RootParameter{
					rootSignatureDesc.Parameters[rootParamConstants],
					{Type: driver.RootParameterDescriptorTable, Visibility: driver.ShaderVisibilityAll, NumDescriptors: 2},
				}
			},
			wantErr: "sampler does not fit a table of 2 textures",
		},
		{
			name: "input width",
			mutate: func(_, _ *driver.ShaderBytecode, _ *driver.RootSignatureDesc, layout *[]driver.InputElement) {
				l := append([]driver.InputElement(nil), VertexInputLayout...)
				l[2].Format = driver.InputFloat32x3
				*layout = l
			},
			wantErr: "has 2 components, layout delivers 3",
		},
		{
			name: "input count",
			mutate: func(_, _ *driver.ShaderBytecode, _ *driver.RootSignatureDesc, layout *[]driver.InputElement) {
				*layout = VertexInputLayout[:3]
			},
			wantErr: "declares 4 inputs, layout has 3",
		},
		{
			name: "input location",
			mutate: func(vs, _ *driver.ShaderBytecode, _ *driver.RootSignatureDesc, _ *[]driver.InputElement) {
				vs.Source = strings.Replace(vs.Source, "@location(3) color", "@location(4) color", 1)
			},
			wantErr: "no input at location 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs, ps := embeddedStages()
			root := driver.RootSignatureDesc{
				Parameters:     rootSignatureDesc.Parameters,
				StaticSamplers: rootSignatureDesc.StaticSamplers,
			}
			layout := VertexInputLayout
			tt.mutate(&vs, &ps, &root, &layout)
			assert.ErrorContains(t, checkShaderInterface(vs, ps, root, layout), tt.wantErr)
		})
	}
}
