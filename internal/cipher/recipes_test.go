package cipher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestBook(t *testing.T) *RecipeBook {
	t.Helper()
	book, err := NewRecipeBook(filepath.Join(t.TempDir(), "recipes"))
	if err != nil {
		t.Fatalf("NewRecipeBook: %v", err)
	}
	tick := 0
	book.now = func() time.Time {
		tick++
		return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC).Add(time.Duration(tick) * time.Second)
	}
	return book
}

func avalancheRecipe(name string) *Recipe {
	return &Recipe{
		Name:        name,
		Description: "avalanche then decimal",
		Tags:        []string{"archive", "text-safe"},
		Pipeline: Pipeline{
			Operations: []OperationConfig{
				{Name: "xor_avalanche_encrypt", Parameters: map[string]interface{}{"key": hexOf(sequentialBytes(0x01, 16))}},
				{Name: "decimal_encode", Parameters: map[string]interface{}{"length": 64}},
			},
			Reversible: true,
		},
	}
}

func TestRecipeBookSaveAndGet(t *testing.T) {
	book := newTestBook(t)

	recipe := avalancheRecipe("Text Safe")
	if err := book.Save(recipe); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if recipe.CreatedAt.IsZero() || recipe.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set")
	}

	path := filepath.Join(book.dir, "Text_Safe.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat recipe: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	got, err := book.Get("Text Safe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != recipe.Description || len(got.Pipeline.Operations) != 2 {
		t.Fatalf("unexpected recipe %+v", got)
	}
	if got.Pipeline.Operations[0].Parameters["key"] != hexOf(sequentialBytes(0x01, 16)) {
		t.Fatalf("parameters not preserved: %#v", got.Pipeline.Operations[0].Parameters)
	}
}

func TestRecipeBookUpdateKeepsCreatedAt(t *testing.T) {
	book := newTestBook(t)
	recipe := avalancheRecipe("rotating")
	if err := book.Save(recipe); err != nil {
		t.Fatalf("Save: %v", err)
	}
	created := recipe.CreatedAt
	if err := book.Save(recipe); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if !recipe.CreatedAt.Equal(created) || !recipe.UpdatedAt.After(created) {
		t.Fatalf("unexpected timestamps created=%v updated=%v", recipe.CreatedAt, recipe.UpdatedAt)
	}
}

func TestRecipeBookListSearchDelete(t *testing.T) {
	book := newTestBook(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := book.Save(avalancheRecipe(name)); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}
	plain := &Recipe{Name: "plain", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "decimal_encode"}}}}
	if err := book.Save(plain); err != nil {
		t.Fatalf("Save plain: %v", err)
	}

	recipes, err := book.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, r := range recipes {
		names = append(names, r.Name)
	}
	if len(names) != 4 || names[0] != "alpha" || names[3] != "zeta" {
		t.Fatalf("expected sorted names, got %v", names)
	}

	matches, err := book.Search("ARCHIVE")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 tag matches, got %d", len(matches))
	}

	if err := book.Delete("mid"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := book.Get("mid"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
	if err := book.Delete("mid"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound deleting twice, got %v", err)
	}
}

func TestRecipeBookListSkipsUnreadableFiles(t *testing.T) {
	book := newTestBook(t)
	if err := book.Save(avalancheRecipe("good")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(book.dir, "junk.yaml"), []byte("::not yaml"), 0o600); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	recipes, err := book.List()
	if !errors.Is(err, ErrUnreadableRecipe) {
		t.Fatalf("expected ErrUnreadableRecipe, got %v", err)
	}
	if len(recipes) != 1 || recipes[0].Name != "good" {
		t.Fatalf("expected only the good recipe, got %d entries", len(recipes))
	}
	if matches, _ := book.Search("archive"); len(matches) != 1 {
		t.Fatalf("expected search to keep the good recipe, got %d", len(matches))
	}
	if _, err := book.Get("good"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestRecipeValidate(t *testing.T) {
	tests := []struct {
		name   string
		recipe Recipe
	}{
		{"reversible decimal without length", Recipe{Name: "x", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "decimal_encode"}}, Reversible: true}}},
		{"empty name", Recipe{Pipeline: Pipeline{Operations: []OperationConfig{{Name: "decimal_encode"}}}}},
		{"no operations", Recipe{Name: "x"}},
		{"unknown operation", Recipe{Name: "x", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "rot13"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.recipe.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRecipeFileAcceptsBarePipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.yaml")
	bare := "reversible: true\noperations:\n  - name: decimal_encode\n    parameters:\n      length: 8\n"
	if err := os.WriteFile(path, []byte(bare), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}

	recipe, err := LoadRecipeFile(path)
	if err != nil {
		t.Fatalf("LoadRecipeFile: %v", err)
	}
	if recipe.Name != "hello" || !recipe.Pipeline.Reversible || len(recipe.Pipeline.Operations) != 1 {
		t.Fatalf("unexpected recipe %+v", recipe)
	}

	if _, err := LoadRecipeFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"simple":          "simple",
		"with space":      "with_space",
		"../escape":       "escape",
		"Mixed-Case_ok 1": "Mixed-Case_ok_1",
		"///":             "recipe",
	}
	for input, want := range tests {
		if got := sanitizeFilename(input); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
