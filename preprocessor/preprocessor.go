// Package preprocessor implements the single textual include pass that
// runs before lexing.
package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var includeLine = regexp.MustCompile(`(?m)^#include (.+)\n`)

// Preprocessor expands "#include FILE" lines in source text. A filename is
// read from disk at most once even if it is included more than once; every
// occurrence of that include line is then replaced with the same contents.
// Includes are not expanded recursively: an included file's own
// "#include" lines are left untouched.
type Preprocessor struct {
	baseDir string
}

// New creates a Preprocessor that resolves include paths relative to
// baseDir (typically the directory containing the top-level source file).
func New(baseDir string) *Preprocessor {
	if baseDir == "" {
		baseDir = "."
	}
	return &Preprocessor{baseDir: baseDir}
}

// Process expands every "#include FILE" line in content and returns the
// resulting text.
func (p *Preprocessor) Process(content string) (string, error) {
	matches := includeLine.FindAllStringSubmatch(content, -1)

	seen := make(map[string]bool)
	for _, m := range matches {
		filename := m[1]
		if seen[filename] {
			continue
		}
		seen[filename] = true

		data, err := os.ReadFile(filepath.Join(p.baseDir, filename))
		if err != nil {
			return "", fmt.Errorf("preprocessor: cannot read included file %q: %w", filename, err)
		}

		directive := "#include " + filename + "\n"
		content = strings.ReplaceAll(content, directive, string(data))
	}

	return content, nil
}
