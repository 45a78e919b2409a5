package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type       string                `yaml:"type"`
	Dimensions int                   `yaml:"dimensions"`
	OpenAI     *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// IndexConfig tunes the per-query nearest-neighbour index.
type IndexConfig struct {
	MaxElements    int `yaml:"max_elements"`
	EfConstruction int `yaml:"ef_construction"`
	M              int `yaml:"m"`
	EfSearch       int `yaml:"ef_search"`
}

// GenerationConfig configures the chat completion client.
type GenerationConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKeyEnv          string `yaml:"api_key_env"`
	Model              string `yaml:"model"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
	RequestsPerMinute  int    `yaml:"requests_per_minute"`
	MaxAttempts        int    `yaml:"max_attempts"`
	InitialBackoffSecs int    `yaml:"initial_backoff_secs"`
	MaxBackoffSecs     int    `yaml:"max_backoff_secs"`
}

// SearchConfig configures the literature search client.
type SearchConfig struct {
	BaseURL          string `yaml:"base_url"`
	Limit            int    `yaml:"limit"`
	LastNYears       int    `yaml:"last_n_years"`
	OpenAccessOnly   bool   `yaml:"open_access_only"`
	PDFAvailableOnly bool   `yaml:"pdf_available_only"`
}

// StorageConfig locates the on-disk artifacts.
type StorageConfig struct {
	EmbeddingsPath string `yaml:"embeddings_path"`
	MetadataPath   string `yaml:"metadata_path"`
	PapersDir      string `yaml:"papers_dir"`
	ReportsDir     string `yaml:"reports_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Index      IndexConfig      `yaml:"index"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Storage    StorageConfig    `yaml:"storage"`
	TopK       int              `yaml:"top_k"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/scholarassist/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "scholarassist", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Chunker:  ChunkerConfig{MaxChars: 500, OverlapChars: 20},
		Embedder: EmbedderConfig{Type: "hashing", Dimensions: 256},
		Index: IndexConfig{
			MaxElements:    10000,
			EfConstruction: 200,
			M:              16,
			EfSearch:       50,
		},
		Generation: GenerationConfig{
			BaseURL:            "https://api.cohere.com",
			APIKeyEnv:          "COHERE_API_KEY",
			Model:              "command-r-plus-08-2024",
			TimeoutSecs:        120,
			RequestsPerMinute:  10,
			MaxAttempts:        5,
			InitialBackoffSecs: 1,
			MaxBackoffSecs:     30,
		},
		Search: SearchConfig{
			BaseURL:    "https://api.semanticscholar.org",
			Limit:      10,
			LastNYears: 5,
		},
		Storage: StorageConfig{
			EmbeddingsPath: filepath.Join("data", "embeddings.gob"),
			MetadataPath:   filepath.Join("data", "metadata.json"),
			PapersDir:      filepath.Join("data", "papers"),
			ReportsDir:     "data",
		},
		TopK: 10,
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = def.Chunker.MaxChars
	}
	if cfg.Chunker.OverlapChars == 0 {
		cfg.Chunker.OverlapChars = def.Chunker.OverlapChars
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Dimensions == 0 {
		cfg.Embedder.Dimensions = def.Embedder.Dimensions
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		oa := cfg.Embedder.OpenAI
		if oa.BaseURL == "" {
			oa.BaseURL = "https://api.openai.com/v1"
		}
		if oa.APIKeyEnv == "" {
			oa.APIKeyEnv = "OPENAI_API_KEY"
		}
		if oa.Model == "" {
			oa.Model = "text-embedding-3-small"
		}
		if oa.TimeoutSecs == 0 {
			oa.TimeoutSecs = 30
		}
	}
	if cfg.Index.MaxElements == 0 {
		cfg.Index.MaxElements = def.Index.MaxElements
	}
	if cfg.Index.EfConstruction == 0 {
		cfg.Index.EfConstruction = def.Index.EfConstruction
	}
	if cfg.Index.M == 0 {
		cfg.Index.M = def.Index.M
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = def.Index.EfSearch
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = def.Generation.BaseURL
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = def.Generation.APIKeyEnv
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = def.Generation.Model
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if cfg.Generation.RequestsPerMinute == 0 {
		cfg.Generation.RequestsPerMinute = def.Generation.RequestsPerMinute
	}
	if cfg.Generation.MaxAttempts == 0 {
		cfg.Generation.MaxAttempts = def.Generation.MaxAttempts
	}
	if cfg.Generation.InitialBackoffSecs == 0 {
		cfg.Generation.InitialBackoffSecs = def.Generation.InitialBackoffSecs
	}
	if cfg.Generation.MaxBackoffSecs == 0 {
		cfg.Generation.MaxBackoffSecs = def.Generation.MaxBackoffSecs
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = def.Search.BaseURL
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = def.Search.Limit
	}
	if cfg.Storage.EmbeddingsPath == "" {
		cfg.Storage.EmbeddingsPath = def.Storage.EmbeddingsPath
	}
	if cfg.Storage.MetadataPath == "" {
		cfg.Storage.MetadataPath = def.Storage.MetadataPath
	}
	if cfg.Storage.PapersDir == "" {
		cfg.Storage.PapersDir = def.Storage.PapersDir
	}
	if cfg.Storage.ReportsDir == "" {
		cfg.Storage.ReportsDir = def.Storage.ReportsDir
	}
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
}
