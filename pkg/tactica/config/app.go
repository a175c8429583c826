package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
)

// App holds the runtime settings, read from tactica.yaml and TACTICA_*
// environment variables (e.g. vlm.model -> TACTICA_VLM_MODEL).
type App struct {
	LogMode        string        `mapstructure:"log_mode"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	IngestTimeout  time.Duration `mapstructure:"ingest_timeout"`

	VLM        VLMConfig        `mapstructure:"vlm"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Decomposer DecomposerConfig `mapstructure:"decomposer"`
	Store      StoreConfig      `mapstructure:"store"`
	Images     ImagesConfig     `mapstructure:"images"`
	Index      IndexConfig      `mapstructure:"index"`

	VocabularyPath string `mapstructure:"vocabulary_path"`
	TaxonomyPath   string `mapstructure:"taxonomy_path"`
}

type VLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	Concurrency      int           `mapstructure:"concurrency"`
	PositionsEnabled bool          `mapstructure:"positions_enabled"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // none, memory or redis
	MaxEntries    int           `mapstructure:"max_entries"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type DocAIConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	Location         string `mapstructure:"location"`
	ProcessorID      string `mapstructure:"processor_id"`
	ProcessorVersion string `mapstructure:"processor_version"`
}

type DecomposerConfig struct {
	Backend    string      `mapstructure:"backend"` // sidecar, docai or bundle
	SidecarURL string      `mapstructure:"sidecar_url"`
	OCR        bool        `mapstructure:"ocr"`
	BundleDir  string      `mapstructure:"bundle_dir"`
	DocAI      DocAIConfig `mapstructure:"docai"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres or memory
	DSN    string `mapstructure:"dsn"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type ImagesConfig struct {
	Backend string   `mapstructure:"backend"` // fs or s3
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

type IndexConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
	Wait    time.Duration `mapstructure:"wait"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_mode", "dev")
	v.SetDefault("max_upload_bytes", 50<<20)
	v.SetDefault("ingest_timeout", "300s")

	v.SetDefault("vlm.provider", "ollama")
	v.SetDefault("vlm.url", "http://localhost:11434")
	v.SetDefault("vlm.model", "qwen3-vl:8b")
	v.SetDefault("vlm.timeout", "300s")
	v.SetDefault("vlm.api_key", "")
	v.SetDefault("vlm.max_attempts", 3)
	v.SetDefault("vlm.concurrency", 2)
	v.SetDefault("vlm.positions_enabled", true)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "168h")

	v.SetDefault("decomposer.backend", "sidecar")
	v.SetDefault("decomposer.sidecar_url", "http://localhost:5001")
	v.SetDefault("decomposer.ocr", true)
	v.SetDefault("decomposer.bundle_dir", "")
	v.SetDefault("decomposer.docai.project_id", "")
	v.SetDefault("decomposer.docai.location", "us")
	v.SetDefault("decomposer.docai.processor_id", "")
	v.SetDefault("decomposer.docai.processor_version", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "tactica.db")

	v.SetDefault("images.backend", "fs")
	v.SetDefault("images.dir", "images")
	v.SetDefault("images.s3.endpoint", "")
	v.SetDefault("images.s3.region", "us-east-1")
	v.SetDefault("images.s3.bucket", "")
	v.SetDefault("images.s3.prefix", "")
	v.SetDefault("images.s3.access_key_id", "")
	v.SetDefault("images.s3.secret_access_key", "")

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", "pages.bleve")
	v.SetDefault("index.timeout", "120s")
	v.SetDefault("index.wait", "5s")

	// Registered so AutomaticEnv can see them during Unmarshal.
	v.SetDefault("vocabulary_path", "")
	v.SetDefault("taxonomy_path", "")
}

// Load reads configuration from the file at path (or tactica.yaml in the
// working directory when path is empty) and the environment. A missing
// default file is not an error.
func Load(path string) (App, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TACTICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tactica")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return App{}, fmt.Errorf("read config: %w", err)
		}
	}

	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("decode config: %w", err)
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Validate checks the enumerated settings and limits.
func (a App) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{internalerr.ErrInvalidConfig}, args...)...)
	}
	if a.MaxUploadBytes <= 0 {
		return bad("max_upload_bytes must be positive")
	}
	if a.IngestTimeout <= 0 {
		return bad("ingest_timeout must be positive")
	}
	if a.VLM.Concurrency < 1 {
		return bad("vlm.concurrency must be at least 1")
	}
	if !oneOf(a.VLM.Provider, "ollama", "openai") {
		return bad("vlm.provider %q", a.VLM.Provider)
	}
	if !oneOf(a.Cache.Backend, "none", "memory", "redis") {
		return bad("cache.backend %q", a.Cache.Backend)
	}
	if !oneOf(a.Decomposer.Backend, "sidecar", "docai", "bundle") {
		return bad("decomposer.backend %q", a.Decomposer.Backend)
	}
	if !oneOf(a.Store.Driver, "sqlite", "postgres", "memory") {
		return bad("store.driver %q", a.Store.Driver)
	}
	if !oneOf(a.Images.Backend, "fs", "s3") {
		return bad("images.backend %q", a.Images.Backend)
	}
	if a.Images.Backend == "s3" && a.Images.S3.Bucket == "" {
		return bad("images.s3.bucket is required")
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
