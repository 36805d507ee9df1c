package labs

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Definitions []*LabTestDefinition `yaml:"definitions"`
}

// DefaultCatalog returns the built-in lab test catalog.
func DefaultCatalog() ([]*LabTestDefinition, error) {
	return parseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog in the same YAML layout from path.
func LoadCatalog(path string) ([]*LabTestDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) ([]*LabTestDefinition, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(cf.Definitions))
	for i, d := range cf.Definitions {
		if d == nil {
			return nil, fmt.Errorf("catalog entry %d: empty definition", i)
		}
		d.normalize()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("catalog entry %d: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
	}
	return cf.Definitions, nil
}
