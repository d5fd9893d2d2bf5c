// Package shader reflects the resource interface of WGSL source: entry points,
// @group/@binding declarations with their buffer sizes, and vertex inputs.
package shader

import (
	"slices"
)

// Stage is a pipeline stage a WGSL entry point is declared for.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// BindingKind classifies a bound resource.
type BindingKind int

const (
	BindingUnknown BindingKind = iota
	BindingUniform
	BindingStorage
	BindingTexture
	BindingStorageTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingTexture:
		return "texture"
	case BindingStorageTexture:
		return "storage texture"
	case BindingSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Binding is one @group(G) @binding(B) declaration.
type Binding struct {
	Group   int
	Binding int
	Name    string
	Type    string
	Kind    BindingKind

	// Size is the byte size of the bound type for buffer bindings, 0 if unknown.
	Size uint64
}

// Attribute is one @location field of the vertex input struct.
type Attribute struct {
	Location int
	Name     string
	Type     string

	// Components is the vector width of Type: 1 for scalars, 2 to 4 for vectors.
	Components int
}

// Reflection is the resource interface of one WGSL source.
type Reflection struct {
	EntryPoints map[Stage]string
	Bindings    []Binding
	Inputs      []Attribute
}

// Reflect parses source. Unrecognized declarations are skipped rather than reported;
// the compiler owns syntax errors.
//
// Parameters:
//   - source: the WGSL source text
//
// Returns:
//   - Reflection: the entry points, bindings sorted by group then binding, and vertex inputs sorted by location
func Reflect(source string) Reflection {
	cleaned := stripComments(source)
	return Reflection{
		EntryPoints: parseEntryPoints(cleaned),
		Bindings:    parseBindings(cleaned),
		Inputs:      parseVertexInputs(cleaned),
	}
}

// EntryPoint returns the first entry point declared for stage.
//
// Returns:
//   - string: the function name
//   - bool: false if the source declares no entry point for stage
func (r Reflection) EntryPoint(stage Stage) (string, bool) {
	name, ok := r.EntryPoints[stage]
	return name, ok
}

// Group returns the bindings of group g in binding order.
func (r Reflection) Group(g int) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Group == g {
			out = append(out, b)
		}
	}
	return out
}

// Groups returns the distinct group indices in ascending order.
func (r Reflection) Groups() []int {
	var groups []int
	for _, b := range r.Bindings {
		if !slices.Contains(groups, b.Group) {
			groups = append(groups, b.Group)
		}
	}
	slices.Sort(groups)
	return groups
}

// Input returns the vertex input at location.
func (r Reflection) Input(location int) (Attribute, bool) {
	for _, a := range r.Inputs {
		if a.Location == location {
			return a, true
		}
	}
	return Attribute{}, false
}
