package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one catalog entry offered to clients for labelling expenses.
// The catalog is advisory: expenses with unknown categories are still stored.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// CategoryCatalog holds the category list served at /api/categories.
type CategoryCatalog struct {
	Categories []Category `yaml:"categories"`
}

// fallbackColor is used when a configured entry omits its chart color.
const fallbackColor = "#4b5563"

func defaultCatalog() *CategoryCatalog {
	return &CategoryCatalog{Categories: []Category{
		{Name: "Travel", Color: "#ef4444"},
		{Name: "Food & Dining", Color: "#eab308"},
		{Name: "Entertainment", Color: "#22c55e"},
		{Name: "Other", Color: "#60a5fa"},
	}}
}

// LoadCategories reads the catalog from a YAML file:
//
//	categories:
//	  - name: Rent
//	    color: "#f97316"
//
// An empty path returns the built-in defaults.
func LoadCategories(path string) (*CategoryCatalog, error) {
	if path == "" {
		return defaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file %s: %w", path, err)
	}

	var catalog CategoryCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse category file %s: %w", path, err)
	}

	cleaned := make([]Category, 0, len(catalog.Categories))
	for _, cat := range catalog.Categories {
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			continue
		}
		if strings.TrimSpace(cat.Color) == "" {
			cat.Color = fallbackColor
		}
		cleaned = append(cleaned, cat)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("category file %s defines no categories", path)
	}
	return &CategoryCatalog{Categories: cleaned}, nil
}
