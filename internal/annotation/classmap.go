package annotation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCategory trims and NFC-normalizes a category name so names read
// from file systems with decomposed Unicode match the class mapping.
func NormalizeCategory(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ClassMapping assigns each category an id equal to its 0-based line
// position in the mapping file. Any id text in the file is ignored.
type ClassMapping struct {
	names []string
	ids   map[string]int
}

// NewClassMapping builds a mapping from names in order. Duplicate names are
// rejected so the mapping stays bijective.
func NewClassMapping(names []string) (*ClassMapping, error) {
	m := &ClassMapping{ids: make(map[string]int, len(names))}
	for _, raw := range names {
		name := NormalizeCategory(raw)
		if name == "" {
			return nil, fmt.Errorf("class mapping: empty category at position %d", len(m.names))
		}
		if prev, ok := m.ids[name]; ok {
			return nil, fmt.Errorf("class mapping: category %q repeated at positions %d and %d", name, prev, len(m.names))
		}
		m.ids[name] = len(m.names)
		m.names = append(m.names, name)
	}
	return m, nil
}

// LoadClassMapping reads a class mapping file of "<arbitrary_id> <category>"
// lines.
func LoadClassMapping(path string) (*ClassMapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class mapping: %w", err)
	}
	defer file.Close()
	m, err := ParseClassMapping(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseClassMapping reads "<arbitrary_id> <category>" lines. Blank lines are
// skipped and do not consume an id.
func ParseClassMapping(r io.Reader) (*ClassMapping, error) {
	scanner := bufio.NewScanner(r)
	var names []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<id> <category>\", got %q", lineNo, line)
		}
		names = append(names, fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class mapping: %w", err)
	}
	return NewClassMapping(names)
}

// ID returns the id for a category and whether it is mapped.
func (m *ClassMapping) ID(category string) (int, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.ids[NormalizeCategory(category)]
	return id, ok
}

// Name returns the category at position id.
func (m *ClassMapping) Name(id int) string {
	if m == nil || id < 0 || id >= len(m.names) {
		return ""
	}
	return m.names[id]
}

// Names returns the categories in id order.
func (m *ClassMapping) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

// Len returns the number of categories.
func (m *ClassMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}
