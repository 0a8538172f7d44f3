// Package config resolves cipherstack settings from defaults, YAML files and
// CIPHERSTACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cipherstack/internal/cipher"
)

// RandomOrder asks for a freshly shuffled layer order per keyset.
const RandomOrder = "random"

const (
	homeConfigDir   = ".cipherstack"
	homeConfigFile  = "config.yaml"
	localConfigFile = "cipherstack.yaml"
	envPrefix       = "CIPHERSTACK_"
)

// Config captures the cipherstack configuration.
type Config struct {
	KeysetDir    string `yaml:"keyset_dir"`
	RecipeDir    string `yaml:"recipe_dir"`
	AuditLog     string `yaml:"audit_log"`
	DefaultOrder string `yaml:"default_order"`
	Workers      int    `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	base := homeConfigDir
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, homeConfigDir)
	}
	return Config{
		KeysetDir:    filepath.Join(base, "keysets"),
		RecipeDir:    filepath.Join(base, "recipes"),
		DefaultOrder: RandomOrder,
		Workers:      4,
	}
}

// Load resolves the configuration. Sources are applied in this order, later
// ones winning:
//  1. Default()
//  2. ~/.cipherstack/config.yaml
//  3. ./cipherstack.yaml
//  4. CIPHERSTACK_KEYSET_DIR, CIPHERSTACK_RECIPE_DIR, CIPHERSTACK_AUDIT_LOG,
//     CIPHERSTACK_ORDER and CIPHERSTACK_WORKERS
func Load() (Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		if err := applyFile(&cfg, filepath.Join(home, homeConfigDir, homeConfigFile)); err != nil {
			return Config{}, err
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	if err := applyFile(&cfg, filepath.Join(wd, localConfigFile)); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configured order and worker count are usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.KeysetDir) == "" {
		return errors.New("keyset_dir must not be empty")
	}
	if strings.TrimSpace(c.RecipeDir) == "" {
		return errors.New("recipe_dir must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !strings.EqualFold(c.DefaultOrder, RandomOrder) {
		if _, err := cipher.ParseOrder(c.DefaultOrder); err != nil {
			return fmt.Errorf("default_order: %w", err)
		}
	}
	return nil
}

// Order returns the configured layer order. The "random" setting draws a
// fresh permutation from src.
func (c Config) Order(src cipher.RandomSource) (cipher.Order, error) {
	if strings.EqualFold(strings.TrimSpace(c.DefaultOrder), RandomOrder) {
		return cipher.ShuffleOrder(src)
	}
	return cipher.ParseOrder(c.DefaultOrder)
}

type fileConfig struct {
	KeysetDir    *string `yaml:"keyset_dir"`
	RecipeDir    *string `yaml:"recipe_dir"`
	AuditLog     *string `yaml:"audit_log"`
	DefaultOrder *string `yaml:"default_order"`
	Workers      *int    `yaml:"workers"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.KeysetDir != nil {
		cfg.KeysetDir = expandHome(strings.TrimSpace(*fc.KeysetDir))
	}
	if fc.RecipeDir != nil {
		cfg.RecipeDir = expandHome(strings.TrimSpace(*fc.RecipeDir))
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = expandHome(strings.TrimSpace(*fc.AuditLog))
	}
	if fc.DefaultOrder != nil {
		cfg.DefaultOrder = strings.TrimSpace(*fc.DefaultOrder)
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := strings.TrimSpace(os.Getenv(envPrefix + "KEYSET_DIR")); val != "" {
		cfg.KeysetDir = expandHome(val)
	}
	if val := strings.TrimSpace(os.Getenv(envPrefix + "RECIPE_DIR")); val != "" {
		cfg.RecipeDir = expandHome(val)
	}
	if val := strings.TrimSpace(os.Getenv(envPrefix + "AUDIT_LOG")); val != "" {
		cfg.AuditLog = expandHome(val)
	}
	if val := strings.TrimSpace(os.Getenv(envPrefix + "ORDER")); val != "" {
		cfg.DefaultOrder = val
	}
	if val := strings.TrimSpace(os.Getenv(envPrefix + "WORKERS")); val != "" {
		workers, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parse %sWORKERS: %w", envPrefix, err)
		}
		cfg.Workers = workers
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
