package importer

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var defaultMappingYAML []byte

const (
	EntityAssets    = "assets"
	EntityEmployees = "employees"
)

// MappingConfig represents the YAML column mapping configuration
type MappingConfig struct {
	Version  int                     `yaml:"version"`
	Entities map[string]EntityConfig `yaml:"entities"`
}

// EntityConfig lists the required columns of an entity and the alternative
// header names accepted for each canonical column.
type EntityConfig struct {
	Required []string            `yaml:"required"`
	Aliases  map[string][]string `yaml:"aliases"`
}

// DefaultMapping returns the built-in mapping
func DefaultMapping() *MappingConfig {
	m, err := ParseMapping(defaultMappingYAML)
	if err != nil {
		panic(fmt.Sprintf("importer: invalid built-in mapping: %v", err))
	}
	return m
}

// LoadMapping reads a mapping file, or returns the default for an empty path.
func LoadMapping(path string) (*MappingConfig, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

func ParseMapping(data []byte) (*MappingConfig, error) {
	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if m.Version != 1 {
		return nil, fmt.Errorf("unsupported mapping version %d", m.Version)
	}
	for _, name := range []string{EntityAssets, EntityEmployees} {
		if _, ok := m.Entities[name]; !ok {
			return nil, fmt.Errorf("mapping has no %q entity", name)
		}
	}
	return &m, nil
}

// columnIndex maps canonical column names to positions in the header.
type columnIndex map[string]int

// resolve normalizes the header and applies aliases. The first column
// that maps to a canonical name wins.
func (c EntityConfig) resolve(header []string) columnIndex {
	aliasOf := make(map[string]string)
	for canonical, aliases := range c.Aliases {
		for _, a := range aliases {
			aliasOf[NormalizeHeader(a)] = canonical
		}
	}

	idx := make(columnIndex)
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if canonical, ok := aliasOf[name]; ok {
			name = canonical
		}
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func (c EntityConfig) missingColumns(idx columnIndex) []string {
	var missing []string
	for _, col := range c.Required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func (idx columnIndex) get(rec []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}
