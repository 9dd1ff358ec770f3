package api

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTools reads a tools YAML file, fills missing sections from
// DefaultTools and validates the result.
func LoadTools(filename string) (*ToolsConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading tools file: %w", err)
	}

	var cfg ToolsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing tools file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating tools file %s: %w", filename, err)
	}

	return &cfg, nil
}

func (c *ToolsConfig) applyDefaults() {
	def := DefaultTools()

	if c.Sorter == nil {
		c.Sorter = def.Sorter
	}
	if c.Converter == nil {
		c.Converter = def.Converter
	}
	if c.Validator == nil {
		c.Validator = def.Validator
	}
	if c.Validator.ReportName == "" {
		c.Validator.ReportName = DefaultReportName
	}
	if len(c.Inventory.Include) == 0 {
		c.Inventory.Include = def.Inventory.Include
		if len(c.Inventory.Exclude) == 0 {
			c.Inventory.Exclude = def.Inventory.Exclude
		}
	}
}
