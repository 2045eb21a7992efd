package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Index     IndexConfig     `yaml:"index"`
	EmbedLLM  LLMConfig       `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	RAG       RAGConfig       `yaml:"rag"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type DatasetConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig selects the vector index backend. For chromem Path is the
// database directory, for pgvector it is the table name.
type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
	DSN           string `yaml:"dsn"`
	Password      string `yaml:"password"`
	Dimension     int    `yaml:"dimension"`
	Debug         bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	ModelsDir string `yaml:"models_dir"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

type GeneratorConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Key               string        `yaml:"key"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	TopP              float64       `yaml:"top_p"`
	RepetitionPenalty float64       `yaml:"repetition_penalty"`
	Timeout           time.Duration `yaml:"timeout"`
}

type RAGConfig struct {
	ChunkSize      int  `yaml:"chunk_size"`
	ChunkOverlap   int  `yaml:"chunk_overlap"`
	TopK           int  `yaml:"top_k"`
	IncludeSources bool `yaml:"include_sources"`
}

type IngestConfig struct {
	ExtraSources []string `yaml:"extra_sources"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration the chatbot was tuned with
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{Path: "deduplicated_dataset.json"},
		Index: IndexConfig{
			Backend:    BackendChromem,
			Path:       "vectorstore/db_chromem",
			Collection: "morocco_tourism",
			Dimension:  384,
		},
		EmbedLLM: LLMConfig{
			Provider:  ProviderOllama,
			BaseURL:   "http://localhost:11434",
			Model:     "all-minilm",
			BatchSize: 32,
			CacheSize: 256,
		},
		Generator: GeneratorConfig{
			Provider:          ProviderOllama,
			BaseURL:           "http://localhost:11434",
			Model:             "llama2",
			MaxTokens:         512,
			Temperature:       0.5,
			TopP:              0.8,
			RepetitionPenalty: 1.1,
		},
		RAG: RAGConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         3,
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: 8000},
		Log:    LogConfig{Level: "info", Pretty: true},
	}
}

// LoadConfig reads the yaml file at path on top of the defaults. A .env file in
// the working directory is loaded first so ${VAR} references can be resolved.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like LoadConfig but falls back to the defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		_ = godotenv.Load()
		return Default(), nil
	}
	return LoadConfig(path)
}

func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendChromem:
		if c.Index.Collection == "" {
			return errors.New("config: index.collection is required for chromem")
		}
	case BackendPGVector:
		if c.Index.DSN == "" {
			return errors.New("config: index.dsn is required for pgvector")
		}
		if c.Index.Dimension <= 0 {
			return errors.New("config: index.dimension must be greater than zero")
		}
	default:
		return fmt.Errorf("config: unknown index backend %q", c.Index.Backend)
	}
	if c.Index.Path == "" {
		return errors.New("config: index.path is required")
	}
	if c.RAG.ChunkSize <= 0 {
		return errors.New("config: rag.chunk_size must be greater than zero")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("config: rag.chunk_overlap %d must be in [0, %d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 {
		return errors.New("config: rag.top_k must be greater than zero")
	}
	if c.Generator.MaxTokens <= 0 {
		return errors.New("config: generator.max_tokens must be greater than zero")
	}
	if c.Generator.Timeout < 0 {
		return errors.New("config: generator.timeout cannot be negative")
	}
	return nil
}
