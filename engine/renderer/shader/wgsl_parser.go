package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	// or handle types: @group(2) @binding(0) var diffuseTexture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// entryRegexes maps each stage to the regex capturing its entry point names.
var entryRegexes = map[Stage]*regexp.Regexp{
	StageVertex:   vertexEntryRegex,
	StageFragment: fragmentEntryRegex,
	StageCompute:  computeEntryRegex,
}

// parseEntryPoints extracts the first entry point function name of each stage.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - map[Stage]string: entry point names keyed by stage; stages without one are absent
func parseEntryPoints(source string) map[Stage]string {
	result := make(map[Stage]string, len(entryRegexes))
	for stage, re := range entryRegexes {
		if match := re.FindStringSubmatch(source); match != nil {
			result[stage] = match[1]
		}
	}
	return result
}

// parseBindings extracts all @group(N) @binding(M) resource declarations. Buffer
// bindings carry the byte size of their bound type when it can be resolved.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []Binding: the declarations sorted by group, then binding
func parseBindings(source string) []Binding {
	structSizes := computeStructSizes(parseStructBlocks(source))

	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		b := Binding{
			Group:   group,
			Binding: binding,
			Name:    strings.TrimSpace(match[4]),
			Type:    strings.TrimSpace(match[5]),
		}
		b.Kind = classifyBinding(addressSpace, b.Type)
		if b.Kind == BindingUniform || b.Kind == BindingStorage {
			if layout, ok := resolveTypeLayout(b.Type, structSizes); ok {
				b.Size = layout.size
			}
		}
		bindings = append(bindings, b)
	}

	slices.SortFunc(bindings, func(x, y Binding) int {
		if x.Group != y.Group {
			return x.Group - y.Group
		}
		return x.Binding - y.Binding
	})
	return bindings
}

// parseVertexInputs extracts the fields of the first pure vertex input struct, one
// with @location fields and no @builtin field. Sources without one return nil.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []Attribute: the vertex inputs sorted by location
func parseVertexInputs(source string) []Attribute {
	for _, ps := range parseStructBlocks(source) {
		if !isVertexInputStruct(ps) {
			continue
		}
		attrs := make([]Attribute, 0, len(ps.fields))
		for _, f := range ps.fields {
			attrs = append(attrs, Attribute{
				Location:   f.location,
				Name:       f.name,
				Type:       f.typeName,
				Components: componentCount(f.typeName),
			})
		}
		slices.SortFunc(attrs, func(x, y Attribute) int {
			return x.Location - y.Location
		})
		return attrs
	}
	return nil
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		name := match[1]
		body := match[2]

		fields := parseStructFields(body)
		structs = append(structs, parsedStruct{
			name:   name,
			fields: fields,
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField

		// check for @builtin
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		// check for @location(N)
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		// extract field name and type
		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			field.name = fm[1]
			field.typeName = strings.TrimSpace(fm[2])
		} else {
			continue
		}

		fields = append(fields, field)
	}

	return fields
}
