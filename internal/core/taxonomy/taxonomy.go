// Package taxonomy holds the fixed clinical taxonomy of health-metric
// categories. The table is static configuration embedded at build time, so the
// matcher can be tested and extended independently of matching logic.
package taxonomy

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

//go:embed categories.yaml
var categoriesYAML []byte

type file struct {
	Categories []domain.HealthMetricCategory `yaml:"categories"`
}

// Load parses the embedded category table. Every category's Total is the
// length of its declared sub-parameter list.
func Load() ([]domain.HealthMetricCategory, error) {
	return Parse(categoriesYAML)
}

// Parse decodes a category table from YAML and validates it.
func Parse(raw []byte) ([]domain.HealthMetricCategory, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode taxonomy yaml: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy: no categories defined")
	}

	seen := make(map[int]bool, len(f.Categories))
	for i := range f.Categories {
		c := &f.Categories[i]
		if c.ID == 0 {
			return nil, fmt.Errorf("taxonomy: category %q has no id", c.Title)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("taxonomy: duplicate category id %d", c.ID)
		}
		seen[c.ID] = true
		if len(c.SubParameters) == 0 {
			return nil, fmt.Errorf("taxonomy: category %q has no sub-parameters", c.Title)
		}
		c.Total = len(c.SubParameters)
	}
	return f.Categories, nil
}

// MustLoad is for wiring paths where a broken embedded table is a programming
// error.
func MustLoad() []domain.HealthMetricCategory {
	categories, err := Load()
	if err != nil {
		panic(err)
	}
	return categories
}
