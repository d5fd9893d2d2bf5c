package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
)

// rootSignatureDesc is the fixed binding layout: the draw constants visible to the
// vertex stage, then one texture table and a static sampler for the pixel stage.
var rootSignatureDesc = driver.RootSignatureDesc{
	Parameters: []driver.RootParameter{
		rootParamConstants: {
			Type:           driver.RootParameterConstants,
			Visibility:     driver.ShaderVisibilityVertex,
			Num32BitValues: drawConstantsCount,
		},
		rootParamTexture: {
			Type:           driver.RootParameterDescriptorTable,
			Visibility:     driver.ShaderVisibilityPixel,
			NumDescriptors: 1,
		},
	},
	StaticSamplers: []driver.StaticSampler{
		{Filter: driver.FilterPoint, AddressMode: driver.AddressModeBorder, Visibility: driver.ShaderVisibilityPixel},
	},
}

// inputComponents is the vector width each input element format delivers to the shader.
var inputComponents = map[driver.InputElementFormat]int{
	driver.InputFloat32x2: 2,
	driver.InputFloat32x3: 3,
	driver.InputUnorm8x4:  4,
}

// checkShaderInterface verifies that the shader stages declare what the pipeline binds:
// the entry points, one bind group per root parameter, and one vertex input per layout
// element with a matching width. Root parameter i is bind group i; a descriptor table of
// n textures occupies bindings 0..n-1 and its static sampler binding n.
//
// Parameters:
//   - vs, ps: the compiled vertex and pixel stages, carrying their WGSL source
//   - root: the root signature the pipeline is created with
//   - layout: the vertex input layout
//
// Returns:
//   - error: the first mismatch found
func checkShaderInterface(vs, ps driver.ShaderBytecode, root driver.RootSignatureDesc, layout []driver.InputElement) error {
	stages := []struct {
		stage      shader.Stage
		visibility driver.ShaderVisibility
		bytecode   driver.ShaderBytecode
	}{
		{shader.StageVertex, driver.ShaderVisibilityVertex, vs},
		{shader.StageFragment, driver.ShaderVisibilityPixel, ps},
	}

	var vertex shader.Reflection
	for _, s := range stages {
		refl := shader.Reflect(s.bytecode.Source)
		if s.stage == shader.StageVertex {
			vertex = refl
		}
		if name, ok := refl.EntryPoint(s.stage); !ok || name != s.bytecode.EntryPoint {
			return fmt.Errorf("%s stage has no entry point %q", s.stage, s.bytecode.EntryPoint)
		}
		for _, b := range refl.Bindings {
			if err := checkBinding(b, s.visibility, root); err != nil {
				return fmt.Errorf("%s stage binding %s (group %d, binding %d): %w", s.stage, b.Name, b.Group, b.Binding, err)
			}
		}
	}

	if len(vertex.Inputs) != len(layout) {
		return fmt.Errorf("vertex stage declares %d inputs, layout has %d", len(vertex.Inputs), len(layout))
	}
	for _, el := range layout {
		in, ok := vertex.Input(int(el.Location))
		if !ok {
			return fmt.Errorf("vertex stage has no input at location %d (%s)", el.Location, el.Semantic)
		}
		if want := inputComponents[el.Format]; in.Components != want {
			return fmt.Errorf("vertex input %s at location %d has %d components, layout delivers %d", in.Name, el.Location, in.Components, want)
		}
	}
	return nil
}

func checkBinding(b shader.Binding, visibility driver.ShaderVisibility, root driver.RootSignatureDesc) error {
	if b.Group >= len(root.Parameters) {
		return fmt.Errorf("no root parameter %d", b.Group)
	}
	p := root.Parameters[b.Group]
	if p.Visibility != driver.ShaderVisibilityAll && p.Visibility != visibility {
		return fmt.Errorf("root parameter %d is not visible to this stage", b.Group)
	}

	switch p.Type {
	case driver.RootParameterConstants:
		if b.Kind != shader.BindingUniform || b.Binding != 0 {
			return fmt.Errorf("root constants bind one uniform at binding 0, got %s", b.Kind)
		}
		if want := uint64(p.Num32BitValues) * 4; b.Size != want {
			return fmt.Errorf("uniform is %d bytes, root constants are %d", b.Size, want)
		}
	case driver.RootParameterDescriptorTable:
		switch {
		case b.Kind == shader.BindingTexture && b.Binding < p.NumDescriptors:
		case b.Kind == shader.BindingSampler && b.Binding == p.NumDescriptors:
			if !samplerVisible(root.StaticSamplers, visibility) {
				return fmt.Errorf("no static sampler visible to this stage")
			}
		default:
			return fmt.Errorf("%s does not fit a table of %d textures", b.Kind, p.NumDescriptors)
		}
	}
	return nil
}

func samplerVisible(samplers []driver.StaticSampler, visibility driver.ShaderVisibility) bool {
	for _, s := range samplers {
		if s.Visibility == driver.ShaderVisibilityAll || s.Visibility == visibility {
			return true
		}
	}
	return false
}
