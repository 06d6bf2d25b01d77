package shader

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// sectionMarkerRegex matches the `// type <stage>` line that opens a stage section.
var sectionMarkerRegex = regexp.MustCompile(`^\s*//\s*type\s+(\w+)\s*$`)

// Sections is a shader file split at its `// type` markers.
type Sections struct {
	// Prelude is the text before the first marker, shared by every stage.
	Prelude string
	// Stages maps each declared stage to the text of its section.
	Stages map[ShaderType]string
	// Order lists stages in the order they appear.
	Order []ShaderType
}

// SplitSections scans source line by line and splits it at `// type vertex|fragment|geometry|compute`
// markers. A file must declare at least one section and may declare each stage once.
//
// Parameters:
//   - source: the full shader file
//
// Returns:
//   - Sections: the prelude and per-stage text
//   - error: an error for unknown stage names, duplicates or a file without markers
func SplitSections(source string) (Sections, error) {
	sec := Sections{Stages: make(map[ShaderType]string)}

	var (
		prelude strings.Builder
		current strings.Builder
		active  = ShaderType(-1)
		lineNo  int
	)
	flush := func() {
		if active >= 0 {
			sec.Stages[active] = current.String()
			current.Reset()
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if m := sectionMarkerRegex.FindStringSubmatch(line); m != nil {
			st, ok := ParseShaderType(m[1])
			if !ok {
				return Sections{}, fmt.Errorf("line %d: unknown shader type %q", lineNo, m[1])
			}
			if _, dup := sec.Stages[st]; dup || st == active {
				return Sections{}, fmt.Errorf("line %d: duplicate %s section", lineNo, st)
			}
			flush()
			active = st
			sec.Stages[st] = ""
			sec.Order = append(sec.Order, st)
			continue
		}
		if active < 0 {
			prelude.WriteString(line)
			prelude.WriteByte('\n')
		} else {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return Sections{}, err
	}
	flush()

	if len(sec.Order) == 0 {
		return Sections{}, fmt.Errorf("no // type section markers")
	}
	sec.Prelude = prelude.String()
	return sec, nil
}

// Stage returns the prelude followed by the named stage section.
func (s Sections) Stage(t ShaderType) (string, bool) {
	body, ok := s.Stages[t]
	if !ok {
		return "", false
	}
	return s.Prelude + body, true
}

// Module joins the prelude and every section into one source, the form WGSL modules with
// several entry points take.
func (s Sections) Module() string {
	var sb strings.Builder
	sb.WriteString(s.Prelude)
	for _, t := range s.Order {
		sb.WriteString(s.Stages[t])
	}
	return sb.String()
}
