package shader

import (
	"regexp"
	"sort"
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

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	computeEntryRegex  = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// vertexParamRegex captures the struct type of the vertex entry point's first parameter
	vertexParamRegex = regexp.MustCompile(`(?s)@vertex\s*fn\s+\w+\s*\(\s*\w+\s*:\s*(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> u: Uniforms;
	// or handle types: @group(1) @binding(0) var albedo: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL source,
// sorted by group then binding. Buffer bindings carry their minimum size when the bound
// type can be resolved.
//
// Parameters:
//   - source: WGSL source
//   - stages: the stage mask applied to every binding found
//
// Returns:
//   - []Binding: the declared resources
func parseBindings(source string, stages StageMask) []Binding {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		b := classifyResource(strings.TrimSpace(match[3]), strings.TrimSpace(match[5]))
		b.Group = group
		b.Binding = binding
		b.Name = strings.TrimSpace(match[4])
		b.Stages = stages

		if b.Kind == ResourceUniformBuffer || b.Kind == ResourceStorageBuffer {
			if layout, ok := resolveTypeLayout(b.Type, structSizes); ok {
				b.Size = layout.size
			}
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from WGSL source.
// Omitted dimensions default to 1; [1, 1, 1] is returned when no annotation is present.
func parseWorkgroupSize(source string) [3]uint32 {
	cleaned := stripComments(source)
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}
	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseEntryPoint extracts the entry point function name for the given shader type.
// Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: WGSL source
//   - shaderType: ShaderTypeVertex, ShaderTypeFragment or ShaderTypeCompute
//
// Returns:
//   - string: the entry point function name
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	case ShaderTypeCompute:
		re = computeEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in comment-free WGSL source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into fields, extracting @location
// and @builtin attributes along with the field name and type.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}

// parseUniformLayout flattens the struct bound at the first uniform buffer binding into named
// field offsets. Nested structs are addressed with dotted names, arrays of structs with an
// index ("lights[2].color"), and arrays of primitives as a single field with Count and Stride.
//
// Parameters:
//   - source: WGSL source
//   - bindings: the bindings previously reflected from the same source
//
// Returns:
//   - *UniformLayout: the flattened layout, nil when no uniform buffer is declared
func parseUniformLayout(source string, bindings []Binding) *UniformLayout {
	var ub *Binding
	for i := range bindings {
		if bindings[i].Kind == ResourceUniformBuffer {
			ub = &bindings[i]
			break
		}
	}
	if ub == nil {
		return nil
	}

	structs := parseStructBlocks(stripComments(source))
	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}
	known := computeStructSizes(structs)

	layout := &UniformLayout{
		Group:   ub.Group,
		Binding: ub.Binding,
		Struct:  ub.Type,
		Size:    ub.Size,
		Fields:  make(map[string]UniformField),
	}
	if ps, ok := byName[ub.Type]; ok {
		flattenStruct(ps, "", 0, byName, known, layout.Fields)
	} else if l, ok := resolveTypeLayout(ub.Type, known); ok {
		layout.Fields[ub.Name] = UniformField{Size: l.size, Type: ub.Type}
	}
	return layout
}

// flattenStruct walks a struct applying WGSL offset rules and records every leaf field.
func flattenStruct(ps parsedStruct, prefix string, base uint64, structs map[string]parsedStruct, known map[string]wgslTypeLayout, out map[string]UniformField) {
	offset := uint64(0)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return
		}
		offset = roundUpAlign(fl.align, offset)
		name := prefix + f.name

		switch {
		case isStructType(f.typeName, structs):
			flattenStruct(structs[f.typeName], name+".", base+offset, structs, known, out)
		case strings.HasPrefix(f.typeName, "array<"):
			elem, count := splitArrayType(f.typeName)
			el, _ := resolveTypeLayout(elem, known)
			stride := roundUpAlign(el.align, el.size)
			if isStructType(elem, structs) {
				for i := 0; i < count; i++ {
					flattenStruct(structs[elem], name+"["+strconv.Itoa(i)+"].", base+offset+uint64(i)*stride, structs, known, out)
				}
			} else {
				out[name] = UniformField{Offset: base + offset, Size: el.size, Type: elem, Count: count, Stride: stride}
			}
		default:
			out[name] = UniformField{Offset: base + offset, Size: fl.size, Type: f.typeName}
		}
		offset += fl.size
	}
}

func isStructType(typeName string, structs map[string]parsedStruct) bool {
	_, ok := structs[typeName]
	return ok
}

// splitArrayType returns the element type and count of "array<T, N>"; count is 0 for
// runtime-sized arrays.
func splitArrayType(typeName string) (string, int) {
	inner := strings.TrimSuffix(strings.TrimPrefix(typeName, "array<"), ">")
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) < 2 {
		return strings.TrimSpace(parts[0]), 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return strings.TrimSpace(parts[0]), n
}

// parseVertexInputs returns the @location types of the struct taken by the vertex entry
// point, used to check a program against the fixed position/normal/uv vertex layout.
func parseVertexInputs(source string) map[int]string {
	result := make(map[int]string)
	cleaned := stripComments(source)
	match := vertexParamRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}
	for _, ps := range parseStructBlocks(cleaned) {
		if ps.name != match[1] || !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			result[f.location] = f.typeName
		}
	}
	return result
}
