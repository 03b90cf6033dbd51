package selection

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/default.yaml
var defaultCatalogYAML []byte

// ParseCatalog decodes a YAML catalog, checks its shape and builds the
// registry.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var def CatalogDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	if err := validator.New().Struct(&def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, err)
	}

	return NewCatalog(def)
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return ParseCatalog(raw)
}

func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}
