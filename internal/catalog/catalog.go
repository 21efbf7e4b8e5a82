// Package catalog holds the built-in movie catalog used by the seeding job.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed movies.txt
var builtin string

// Default returns the built-in catalog entries.
func Default() []string {
	return Parse(builtin)
}

// Parse splits text into entries separated by one or more blank lines. Lines inside an entry
// keep their line breaks; surrounding whitespace is trimmed. Windows line endings are accepted.
func Parse(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		entries []string
		current []string
	)

	flush := func() {
		if len(current) > 0 {
			entries = append(entries, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()

			continue
		}

		current = append(current, line)
	}

	flush()

	return entries
}

// Load reads and parses the catalog file at path. An empty path returns the built-in catalog.
func Load(path string) ([]string, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	return Parse(string(data)), nil
}
