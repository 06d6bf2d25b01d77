// pre_processor.go expands `// #include <name>` directives in shader source. Snippets are
// looked up through an IncludeResolver, usually the built-in program library, so shared WGSL
// (uniform structs, lighting helpers, cube sampling) is written once. Includes may nest; each
// snippet is emitted at most once per shader and cycles are reported as errors.
package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// includeRegex matches `// #include <name>` and `// #include "name"`.
var includeRegex = regexp.MustCompile(`^\s*//\s*#include\s+[<"]([\w./-]+)[>"]\s*$`)

// IncludeResolver returns the source of a named snippet.
type IncludeResolver func(name string) (string, bool)

// MapResolver builds an IncludeResolver backed by a fixed set of snippets.
func MapResolver(snippets map[string]string) IncludeResolver {
	return func(name string) (string, bool) {
		src, ok := snippets[name]
		return src, ok
	}
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	resolver IncludeResolver
	included []string
}

// PreProcessor expands include directives in raw shader source.
type PreProcessor interface {
	// Process returns source with every include directive replaced by the snippet it names.
	//
	// Parameters:
	//   - source: raw shader source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if a snippet is unknown or includes itself
	Process(source string) (string, error)

	// Included returns the snippet names expanded by the most recent Process call, in order.
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor. A nil resolver rejects every include.
func NewPreProcessor(resolver IncludeResolver) PreProcessor {
	if resolver == nil {
		resolver = func(string) (string, bool) { return "", false }
	}
	return &preProcessor{resolver: resolver}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)
	return p.expand(source, seen, nil)
}

func (p *preProcessor) Included() []string {
	return p.included
}

func (p *preProcessor) expand(source string, seen map[string]bool, stack []string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		m := includeRegex.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		name := m[1]
		for _, s := range stack {
			if s == name {
				return "", fmt.Errorf("line %d: include cycle %s -> %s", i+1, strings.Join(stack, " -> "), name)
			}
		}
		if seen[name] {
			continue
		}
		snippet, ok := p.resolver(name)
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		expanded, err := p.expand(snippet, seen, append(stack, name))
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		seen[name] = true
		p.included = append(p.included, name)
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}
