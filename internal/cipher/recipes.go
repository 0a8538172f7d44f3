package cipher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrRecipeNotFound indicates no recipe is saved under the requested name.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrUnreadableRecipe marks a file List skipped because it failed to parse or validate.
	ErrUnreadableRecipe = errors.New("unreadable recipe")
)

const recipeExt = ".yaml"

// Recipe is a named, reusable pipeline.
type Recipe struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	Pipeline    Pipeline  `yaml:"pipeline"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// Validate checks that every step names a registered operation and, for a
// reversible recipe, that every step can be inverted.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("recipe name cannot be empty")
	}
	if len(r.Pipeline.Operations) == 0 {
		return fmt.Errorf("recipe %s has no operations", r.Name)
	}
	for i, step := range r.Pipeline.Operations {
		if _, ok := GetOperation(step.Name); !ok {
			return fmt.Errorf("recipe %s: unknown operation at step %d: %s", r.Name, i, step.Name)
		}
	}
	if r.Pipeline.Reversible {
		if _, err := r.Pipeline.Reverse(); err != nil {
			return fmt.Errorf("recipe %s: %w", r.Name, err)
		}
	}
	return nil
}

// RecipeBook keeps recipes as YAML files in a directory. Recipe parameters
// may hold key material, so files are written with mode 0600.
type RecipeBook struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewRecipeBook opens the recipe directory, creating it if needed.
func NewRecipeBook(dir string) (*RecipeBook, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("recipe directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create recipe directory: %w", err)
	}
	return &RecipeBook{dir: dir, now: time.Now}, nil
}

// Save validates and stores recipe, replacing any recipe with the same name.
func (b *RecipeBook) Save(recipe *Recipe) error {
	if recipe == nil {
		return errors.New("recipe is nil")
	}
	if err := recipe.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	data, err := yaml.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("serialize recipe: %w", err)
	}
	if err := os.WriteFile(b.path(recipe.Name), data, 0o600); err != nil {
		return fmt.Errorf("write recipe file: %w", err)
	}
	return nil
}

// Get loads the recipe saved under name.
func (b *RecipeBook) Get(name string) (*Recipe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return readRecipe(b.path(name), name)
}

// List returns every readable recipe sorted by name. Unreadable files are
// skipped and reported through ErrUnreadableRecipe alongside the results.
func (b *RecipeBook) List() ([]*Recipe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read recipe directory: %w", err)
	}
	var (
		recipes []*Recipe
		skipped []error
	)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recipeExt {
			continue
		}
		recipe, err := readRecipe(filepath.Join(b.dir, entry.Name()), entry.Name())
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w %s: %w", ErrUnreadableRecipe, entry.Name(), err))
			continue
		}
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].Name < recipes[j].Name
	})
	return recipes, errors.Join(skipped...)
}

// Search returns recipes whose name, description or tags contain query,
// ignoring case.
func (b *RecipeBook) Search(query string) ([]*Recipe, error) {
	recipes, err := b.List()
	if recipes == nil && err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var results []*Recipe
	for _, recipe := range recipes {
		if matchesRecipe(recipe, needle) {
			results = append(results, recipe)
		}
	}
	return results, err
}

func matchesRecipe(recipe *Recipe, needle string) bool {
	if strings.Contains(strings.ToLower(recipe.Name), needle) ||
		strings.Contains(strings.ToLower(recipe.Description), needle) {
		return true
	}
	for _, tag := range recipe.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Delete removes the recipe saved under name.
func (b *RecipeBook) Delete(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
		}
		return fmt.Errorf("delete recipe file: %w", err)
	}
	return nil
}

// LoadRecipeFile reads a recipe from an arbitrary YAML file. A file holding
// only a bare pipeline is accepted and named after the file.
func LoadRecipeFile(path string) (*Recipe, error) {
	recipe, err := readRecipe(path, path)
	if err != nil {
		return nil, err
	}
	if recipe.Name == "" {
		recipe.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(recipe.Pipeline.Operations) == 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read recipe: %w", err)
		}
		if err := yaml.Unmarshal(data, &recipe.Pipeline); err != nil {
			return nil, fmt.Errorf("parse recipe %s: %w", path, err)
		}
	}
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (b *RecipeBook) path(name string) string {
	return filepath.Join(b.dir, sanitizeFilename(name)+recipeExt)
}

func readRecipe(path, name string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
		}
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	var recipe Recipe
	if err := yaml.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", name, err)
	}
	return &recipe, nil
}

// sanitizeFilename maps a recipe name onto a safe file name.
func sanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "recipe"
	}
	return sb.String()
}
