// Package district maps the short town codes returned by the station lookup
// to canonical HDB district names.
package district

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed districts.yaml
var defaultDistrictsYAML []byte

// Table is an immutable code -> district name lookup. It is safe for
// concurrent use.
type Table struct {
	codes   map[string]string
	aliases map[string]string
	names   []string
}

type tableFile struct {
	Codes   map[string]string `yaml:"codes"`
	Aliases map[string]string `yaml:"aliases"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table. It is parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(defaultDistrictsYAML)
		if defaultErr == nil {
			slog.Info("Loaded district table", "codes", len(defaultTable.codes), "aliases", len(defaultTable.aliases))
		}
	})
	return defaultTable, defaultErr
}

// MustDefault is like Default but degrades to an empty table on error.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		slog.Warn("Failed to load district table, codes will not resolve", "error", err)
		return &Table{codes: map[string]string{}, aliases: map[string]string{}}
	}
	return t
}

// Load reads a table from path, or returns the embedded default when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read district table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML district table. Codes and names are upper-cased.
func Parse(data []byte) (*Table, error) {
	var raw tableFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse district table: %w", err)
	}
	if len(raw.Codes) == 0 {
		return nil, fmt.Errorf("parse district table: no codes defined")
	}

	t := &Table{
		codes:   make(map[string]string, len(raw.Codes)),
		aliases: make(map[string]string, len(raw.Aliases)),
	}
	seen := make(map[string]bool)
	for code, name := range raw.Codes {
		name = normalize(name)
		t.codes[normalize(code)] = name
		if !seen[name] {
			seen[name] = true
			t.names = append(t.names, name)
		}
	}
	for alias, name := range raw.Aliases {
		t.aliases[normalize(alias)] = normalize(name)
	}
	sort.Strings(t.names)
	return t, nil
}

// Resolve maps a district code to its canonical name. Lookup ignores case
// and surrounding whitespace.
func (t *Table) Resolve(code string) (string, bool) {
	name, ok := t.codes[normalize(code)]
	return name, ok
}

// Names returns the canonical district names in sorted order
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of codes in the table
func (t *Table) Len() int {
	return len(t.codes)
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
