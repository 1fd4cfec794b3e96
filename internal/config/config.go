package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// FileName is the config file name inside ~/.presetvault and repo .presetvault dirs.
	FileName = "config.yaml"

	// RepoDirName is the per-repo config directory found by walking upward.
	RepoDirName = ".presetvault"

	// EnvPrefix prefixes every environment override, e.g. PRESETVAULT_LOG_LEVEL.
	EnvPrefix = "PRESETVAULT_"

	// DefaultPresetMaxBytes is the default content size limit (1 MiB).
	DefaultPresetMaxBytes = 1 << 20
)

// Metadata backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config holds application configuration.
type Config struct {
	// PresetMaxBytes is the maximum content size accepted by save. 0 disables the check.
	PresetMaxBytes int `koanf:"preset_max_bytes" validate:"gte=0"`

	// AllowedPaths is an allowlist of directories for import/export.
	// Paths outside ~/.presetvault/exports require being in this list or AllowUnsafePaths=true.
	// Relative paths are ignored.
	AllowedPaths []string `koanf:"allowed_paths"`

	// AllowUnsafePaths disables directory restrictions for import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `koanf:"allow_unsafe_paths"`

	// DBMaxOpenConns limits open SQLite connections. 0 means the sql.DB default.
	DBMaxOpenConns int `koanf:"db_max_open_conns" validate:"gte=0"`

	// DBMaxIdleConns limits idle SQLite connections. 0 means the sql.DB default.
	DBMaxIdleConns int `koanf:"db_max_idle_conns" validate:"gte=0"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `koanf:"disabled_tools"`

	// MetadataBackend selects the metadata store: sqlite (default) or bolt.
	MetadataBackend string `koanf:"metadata_backend" validate:"omitempty,oneof=sqlite bolt"`

	// ShareCommand is run with the exported file path as its last argument.
	// Empty means sharing is unavailable.
	ShareCommand []string `koanf:"share_command"`

	Catalog CatalogConfig `koanf:"catalog"`
	Log     LogConfig     `koanf:"log"`
}

// CatalogConfig locates the bundled preset catalog.
type CatalogConfig struct {
	// Manifest is the path to the catalog manifest JSON. Empty disables seeding.
	Manifest string `koanf:"manifest"`

	// AssetsDir is the root that manifest assetPath values resolve against.
	// Empty means placeholder content is generated for every entry.
	AssetsDir string `koanf:"assets_dir"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PresetMaxBytes:  DefaultPresetMaxBytes,
		MetadataBackend: BackendSQLite,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from baseDir/config.yaml plus environment overrides.
// Returns defaults if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.presetvault.
func Load(baseDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	return finish(Merge(DefaultConfig(), global))
}

// LoadWithRepo loads configuration from both global (~/.presetvault) and repo (.presetvault) directories.
// Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment variables are applied last. Either or both files may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return finish(Merge(Merge(DefaultConfig(), global), repo))
}

// FindRepoConfig walks upward from startDir to find the nearest .presetvault/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads a single YAML file.
// Returns a zero-valued config (not defaults) if the path is empty or missing.
func loadFileRaw(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", configPath, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// finish layers environment overrides on top of the merged files and validates.
func finish(merged *Config) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(merged, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load merged config: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransformFunc maps PRESETVAULT_CATALOG_ASSETS_DIR to catalog.assets_dir.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range []string{"catalog", "log"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// sliceConfigPaths are parsed as comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"allowed_paths",
	"disabled_tools",
}

// processSliceFields converts comma-separated env strings to slices.
// share_command is split on whitespace instead.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	if s, ok := k.Get("share_command").(string); ok {
		if err := k.Set("share_command", strings.Fields(s)); err != nil {
			return fmt.Errorf("set share_command: %w", err)
		}
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.PresetMaxBytes = firstNonZero(overlay.PresetMaxBytes, base.PresetMaxBytes)
	result.DBMaxOpenConns = firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.MetadataBackend = firstNonZero(overlay.MetadataBackend, base.MetadataBackend)
	result.Catalog.Manifest = firstNonZero(overlay.Catalog.Manifest, base.Catalog.Manifest)
	result.Catalog.AssetsDir = firstNonZero(overlay.Catalog.AssetsDir, base.Catalog.AssetsDir)
	result.Log.Level = firstNonZero(overlay.Log.Level, base.Log.Level)
	result.Log.Format = firstNonZero(overlay.Log.Format, base.Log.Format)

	// share_command is a single argv, not a set
	result.ShareCommand = base.ShareCommand
	if len(overlay.ShareCommand) > 0 {
		result.ShareCommand = overlay.ShareCommand
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonZero[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
