package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCategoriesDefaults(t *testing.T) {
	catalog, err := LoadCategories("")
	if err != nil {
		t.Fatalf("LoadCategories error: %v", err)
	}
	if len(catalog.Categories) != 4 {
		t.Fatalf("expected 4 default categories, got %d", len(catalog.Categories))
	}
	if catalog.Categories[0].Name != "Travel" {
		t.Fatalf("unexpected first category: %+v", catalog.Categories[0])
	}
}

func TestLoadCategoriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := `categories:
  - name: Rent
    color: "#f97316"
  - name: Utilities
  - name: "  "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	catalog, err := LoadCategories(path)
	if err != nil {
		t.Fatalf("LoadCategories error: %v", err)
	}
	if len(catalog.Categories) != 2 {
		t.Fatalf("expected 2 categories (blank name skipped), got %d", len(catalog.Categories))
	}
	if catalog.Categories[0].Name != "Rent" || catalog.Categories[0].Color != "#f97316" {
		t.Fatalf("unexpected first category: %+v", catalog.Categories[0])
	}
	if catalog.Categories[1].Color != fallbackColor {
		t.Fatalf("expected fallback color, got %q", catalog.Categories[1].Color)
	}
}

func TestLoadCategoriesErrors(t *testing.T) {
	if _, err := LoadCategories(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("categories: []\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadCategories(empty); err == nil {
		t.Fatal("expected error for empty catalog")
	}

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(broken, []byte(":\n\t-"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadCategories(broken); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
