// Package config loads and validates the loom configuration file.
//
// Configuration lives in a TOML file, by default "loom.toml" in the
// working directory. Every field has a sensible default so a missing file
// is not an error: the zero configuration scans the current directory,
// keeps state in memory, and writes artifacts to "build".
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultPath is the configuration file loaded when none is specified.
const DefaultPath = "loom.toml"

// Store backends.
const (
	StoreSurreal = "surreal"
	StoreMemory  = "memory"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full loom configuration.
type Config struct {
	Corpus CorpusConfig `toml:"corpus"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Render RenderConfig `toml:"render"`
	Serve  ServeConfig  `toml:"serve"`
}

// CorpusConfig locates the markdown corpus.
type CorpusConfig struct {
	// Root is the corpus root directory.
	Root string `toml:"root"`

	// SkillsDir is a hidden directory under Root that is scanned anyway.
	// Hidden directories are otherwise skipped.
	SkillsDir string `toml:"skills_dir"`

	// IncludeDrafts loads documents marked draft in their frontmatter.
	IncludeDrafts bool `toml:"include_drafts"`
}

// StoreConfig selects and configures the composition store backend.
type StoreConfig struct {
	Backend string        `toml:"backend"`
	Surreal SurrealConfig `toml:"surreal"`
}

// SurrealConfig configures the SurrealDB backend.
type SurrealConfig struct {
	URL       string `toml:"url"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	User      string `toml:"user"`
	Pass      string `toml:"pass"`
}

// CacheConfig selects and configures the render cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RenderConfig configures artifact rendering.
type RenderConfig struct {
	// OutputDir receives rendered artifacts.
	OutputDir string `toml:"output_dir"`

	// Workers bounds per-layer render concurrency. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`

	// Extensions names the markdown extensions to enable.
	Extensions []string `toml:"extensions"`

	// UnsafeHTML passes raw HTML through to artifacts.
	UnsafeHTML bool `toml:"unsafe_html"`

	// HardWraps renders single newlines as line breaks.
	HardWraps bool `toml:"hard_wraps"`
}

// ServeConfig configures the artifact server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Root:      ".",
			SkillsDir: ".claude/skills",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Surreal: SurrealConfig{
				URL:       "ws://localhost:8000/rpc",
				Namespace: "loom",
				Database:  "corpus",
				User:      "root",
				Pass:      "root",
			},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     defaultCacheDir(),
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Render: RenderConfig{
			OutputDir: "build",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "loom")
	}
	return ".loom-cache"
}

// Load reads the configuration at path, overlaying it on the defaults.
// A missing file at the default path yields the defaults; a missing file
// at an explicitly chosen path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Corpus),
		validation.Field(&c.Store),
		validation.Field(&c.Cache),
		validation.Field(&c.Render),
		validation.Field(&c.Serve),
	)
}

// Validate implements validation.Validatable.
func (c CorpusConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Root, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(StoreSurreal, StoreMemory)),
		validation.Field(&c.Surreal),
	)
}

// Validate implements validation.Validatable.
func (c SurrealConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Namespace, validation.Required),
		validation.Field(&c.Database, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(CacheFile, CacheRedis, CacheNone)),
	)
}

// Validate implements validation.Validatable.
func (c RenderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (c ServeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
	)
}
