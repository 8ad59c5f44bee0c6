package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// File is the on-disk layout of a flows file.
//
//	flows:
//	  - name: haiku
//	    model: openai/gpt-4o-mini
//	    messages:
//	      - role: user
//	        content: Write a haiku about Go.
type File struct {
	Flows []*Definition `yaml:"flows"`
}

// LoadFile reads and validates flow definitions from a YAML (or JSON) file.
func LoadFile(path string) ([]*Definition, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("flows file path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve flows file path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read flows file %q: %w", absPath, err)
	}
	return Parse(data)
}

// Parse decodes flow definitions from YAML.
func Parse(data []byte) ([]*Definition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode flows: %w", err)
	}
	seen := make(map[string]bool, len(f.Flows))
	out := make([]*Definition, 0, len(f.Flows))
	for i, d := range f.Flows {
		if d == nil {
			return nil, fmt.Errorf("flow %d is empty", i)
		}
		d.Name = strings.TrimSpace(d.Name)
		d.Model = strings.TrimSpace(d.Model)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("flow %q defined twice", d.Name)
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, nil
}
