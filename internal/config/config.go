// Package config loads pdfindex settings from flags, environment and an
// optional YAML file.
//
// Every key may be set as PDFINDEX_<KEY> (for example PDFINDEX_SOURCE_DIR).
// The environment names used by earlier deployments of the build script are
// honored as fallbacks.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dshills/pdfindex/internal/chunker"
	"github.com/dshills/pdfindex/internal/embedder"
	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/internal/indexer"
)

// EnvPrefix is prepended to every key when read from the environment
const EnvPrefix = "PDFINDEX"

// ConfigName is the base name of the optional config file (pdfindex.yaml)
const ConfigName = "pdfindex"

// Keys
const (
	KeySourceDir    = "source_dir"
	KeyRecordPath   = "record_path"
	KeyStoreDir     = "store_dir"
	KeyCollection   = "collection"
	KeyLogPath      = "log_path"
	KeyChunkSize    = "chunk_size"
	KeyChunkOverlap = "chunk_overlap"
	KeyBatchSize    = "batch_size"
	KeyProvider     = "embedding.provider"
	KeyModel        = "embedding.model"
	KeyBaseURL      = "embedding.base_url"
	KeyAPIKey       = "embedding.api_key"
	KeyCacheSize    = "embedding.cache_size"
	KeyLogLevel     = "log_level"
	KeyPDFPassword  = "pdf_password"
)

// Defaults
const (
	DefaultSourceDir  = "docs"
	DefaultRecordPath = "processed_files.json"
	DefaultStoreDir   = "vector_db"
	DefaultCollection = "docs"
	DefaultLogPath    = "vecDataHist.txt"
	DefaultLogLevel   = "info"
)

// legacyEnv maps keys to the environment variables read by the original build
// script. They apply only when the PDFINDEX_ variable is unset.
var legacyEnv = map[string]string{
	KeyRecordPath: "PROCESSED_FILES_RECORD",
	KeyStoreDir:   "CHROMA_PERSIST_DIRECTORY",
	KeyCollection: "COLLECTION_NAME",
}

// Config is the resolved configuration for one invocation
type Config struct {
	SourceDir    string          `mapstructure:"source_dir" yaml:"source_dir"`
	RecordPath   string          `mapstructure:"record_path" yaml:"record_path"`
	StoreDir     string          `mapstructure:"store_dir" yaml:"store_dir"`
	Collection   string          `mapstructure:"collection" yaml:"collection"`
	LogPath      string          `mapstructure:"log_path" yaml:"log_path"`
	ChunkSize    int             `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int             `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	BatchSize    int             `mapstructure:"batch_size" yaml:"batch_size"`
	LogLevel     string          `mapstructure:"log_level" yaml:"log_level"`
	PDFPassword  string          `mapstructure:"pdf_password" yaml:"-"` // opens encrypted PDFs
	Embedding    EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey    string `mapstructure:"api_key" yaml:"-"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	cc := chunker.DefaultConfig()
	return Config{
		SourceDir:    DefaultSourceDir,
		RecordPath:   DefaultRecordPath,
		StoreDir:     DefaultStoreDir,
		Collection:   DefaultCollection,
		LogPath:      DefaultLogPath,
		ChunkSize:    cc.ChunkSize,
		ChunkOverlap: cc.ChunkOverlap,
		BatchSize:    embedder.DefaultBatchSize,
		LogLevel:     DefaultLogLevel,
		Embedding: EmbeddingConfig{
			CacheSize: embedder.DefaultCacheSize,
		},
	}
}

// SetDefaults registers Default() on v so that env and file lookups resolve
// every key
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeySourceDir, d.SourceDir)
	v.SetDefault(KeyRecordPath, d.RecordPath)
	v.SetDefault(KeyStoreDir, d.StoreDir)
	v.SetDefault(KeyCollection, d.Collection)
	v.SetDefault(KeyLogPath, d.LogPath)
	v.SetDefault(KeyChunkSize, d.ChunkSize)
	v.SetDefault(KeyChunkOverlap, d.ChunkOverlap)
	v.SetDefault(KeyBatchSize, d.BatchSize)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyPDFPassword, d.PDFPassword)
	v.SetDefault(KeyProvider, d.Embedding.Provider)
	v.SetDefault(KeyModel, d.Embedding.Model)
	v.SetDefault(KeyBaseURL, d.Embedding.BaseURL)
	v.SetDefault(KeyAPIKey, d.Embedding.APIKey)
	v.SetDefault(KeyCacheSize, d.Embedding.CacheSize)
}

// New returns a viper instance wired for pdfindex: defaults, env prefix and
// config file search paths. cfgFile overrides the search when not empty.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env)
	}

	return v
}

// ReadFile reads the config file if one is found. A missing file is not an
// error unless it was named explicitly.
func ReadFile(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
	if missing && !explicit {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load resolves v into a validated Config
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no run could use
func (c Config) Validate() error {
	if err := c.BuildOptions(false).Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.ChunkerConfig().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.BatchSize < 1 || c.BatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("invalid config: batch_size must be between 1 and %d", embedder.MaxBatchSize)
	}
	if c.Embedding.CacheSize < 0 {
		return errors.New("invalid config: embedding.cache_size must be >= 0")
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderGemini, embedder.ProviderLocal:
	default:
		return fmt.Errorf("invalid config: unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}

// BuildOptions converts the configuration into indexer options
func (c Config) BuildOptions(force bool) indexer.Options {
	return indexer.Options{
		SourceDir:  c.SourceDir,
		RecordPath: c.RecordPath,
		StoreDir:   c.StoreDir,
		Collection: c.Collection,
		LogPath:    c.LogPath,
		BatchSize:  c.BatchSize,
		Force:      force,
	}
}

// ChunkerConfig returns the chunk sizing settings
func (c Config) ChunkerConfig() chunker.Config {
	return chunker.Config{ChunkSize: c.ChunkSize, ChunkOverlap: c.ChunkOverlap}
}

// EmbedderConfig returns the embedding provider settings
func (c Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		APIKey:    c.Embedding.APIKey,
		Model:     c.Embedding.Model,
		BaseURL:   c.Embedding.BaseURL,
		BatchSize: c.BatchSize,
		CacheSize: c.Embedding.CacheSize,
	}
}

// ExtractorOptions returns the PDF extractor settings
func (c Config) ExtractorOptions() []extractor.Option {
	if c.PDFPassword == "" {
		return nil
	}
	return []extractor.Option{extractor.WithPassword(c.PDFPassword)}
}
