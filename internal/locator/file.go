package locator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML catalog from path and overlays it on base. Sites
// present in the file replace the base site wholesale; absent sites keep the
// base variants.
func LoadFile(path string, base Catalog) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read locators: %w", err)
	}
	return Parse(data, base)
}

// Parse is LoadFile without the filesystem.
func Parse(data []byte, base Catalog) (Catalog, error) {
	cat := base
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse locators: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Marshal renders the catalog as YAML, in the same shape LoadFile accepts.
func Marshal(c Catalog) ([]byte, error) {
	return yaml.Marshal(c)
}
