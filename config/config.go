// Package config loads run configuration from a YAML file with
// environment overrides for everything secret.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/foursight-ai/foursight/pipeline"
)

// Config is the full application configuration.
type Config struct {
	OpenAI struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		EmbeddingModel string `yaml:"embedding_model"`
		Temperature    float32 `yaml:"temperature"`
	} `yaml:"openai"`

	Search struct {
		SerperAPIKey     string `yaml:"serper_api_key"`
		ProductHuntToken string `yaml:"producthunt_token"`
		RedditUserAgent  string `yaml:"reddit_user_agent"`
	} `yaml:"search"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Pipeline struct {
		MaxWebResults       int     `yaml:"max_web_results"`
		MaxAcademicResults  int     `yaml:"max_academic_results"`
		MaxCommunityResults int     `yaml:"max_community_results"`
		MaxProductResults   int     `yaml:"max_product_results"`
		MaxDocuments        int     `yaml:"max_documents"`
		RetrievalTopK       int     `yaml:"retrieval_top_k"`
		RetrievalAlpha      float64 `yaml:"retrieval_alpha"`
		ChunkSize           int     `yaml:"chunk_size"`
		ChunkOverlap        int     `yaml:"chunk_overlap"`
		SourceTimeoutSec    int     `yaml:"source_timeout_sec"`
	} `yaml:"pipeline"`

	ReportDir string `yaml:"report_dir"`
	LogLevel  string `yaml:"log_level"`
}

// Load reads the optional YAML file at path, layers environment
// variables on top, and validates the result. A .env file in the
// working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.OpenAI.Temperature = 0.7
	cfg.Search.RedditUserAgent = "foursight/1.0"
	cfg.Redis.Addr = "localhost:6379"
	cfg.ReportDir = "reports"
	cfg.LogLevel = "info"

	p := pipeline.DefaultConfig()
	cfg.Pipeline.MaxWebResults = p.MaxWebResults
	cfg.Pipeline.MaxAcademicResults = p.MaxAcademicResults
	cfg.Pipeline.MaxCommunityResults = p.MaxCommunityResults
	cfg.Pipeline.MaxProductResults = p.MaxProductResults
	cfg.Pipeline.MaxDocuments = p.MaxDocuments
	cfg.Pipeline.RetrievalTopK = p.RetrievalTopK
	cfg.Pipeline.RetrievalAlpha = p.RetrievalAlpha
	cfg.Pipeline.ChunkSize = p.ChunkSize
	cfg.Pipeline.ChunkOverlap = p.ChunkOverlap
	cfg.Pipeline.SourceTimeoutSec = int(p.SourceTimeout / time.Second)
	return cfg
}

func applyEnv(cfg *Config) {
	setEnv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setEnv(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setEnv(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setEnv(&cfg.Search.SerperAPIKey, "SERPER_API_KEY")
	setEnv(&cfg.Search.ProductHuntToken, "PRODUCTHUNT_TOKEN")
	setEnv(&cfg.Search.RedditUserAgent, "REDDIT_USER_AGENT")
	setEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	setEnv(&cfg.ReportDir, "FOURSIGHT_REPORT_DIR")
	setEnv(&cfg.LogLevel, "FOURSIGHT_LOG_LEVEL")
}

// Validate checks the knobs a bad value would only surface deep inside
// a run.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("config: openai api key not set (OPENAI_API_KEY)")
	}
	p := c.Pipeline
	if p.RetrievalAlpha < 0 || p.RetrievalAlpha > 1 {
		return fmt.Errorf("config: retrieval_alpha %v outside [0,1]", p.RetrievalAlpha)
	}
	if p.RetrievalTopK <= 0 {
		return fmt.Errorf("config: retrieval_top_k must be positive")
	}
	if p.ChunkSize <= 0 || p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("config: chunk_overlap %d must be in [0, chunk_size %d)", p.ChunkOverlap, p.ChunkSize)
	}
	if p.MaxDocuments < 0 {
		return fmt.Errorf("config: max_documents must not be negative")
	}
	return nil
}

// PipelineConfig converts the configured knobs into a run config.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxWebResults:       c.Pipeline.MaxWebResults,
		MaxAcademicResults:  c.Pipeline.MaxAcademicResults,
		MaxCommunityResults: c.Pipeline.MaxCommunityResults,
		MaxProductResults:   c.Pipeline.MaxProductResults,
		MaxDocuments:        c.Pipeline.MaxDocuments,
		RetrievalTopK:       c.Pipeline.RetrievalTopK,
		RetrievalAlpha:      c.Pipeline.RetrievalAlpha,
		ChunkSize:           c.Pipeline.ChunkSize,
		ChunkOverlap:        c.Pipeline.ChunkOverlap,
		SourceTimeout:       time.Duration(c.Pipeline.SourceTimeoutSec) * time.Second,
	}
}
