// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	OpenAIKey       string `yaml:"openai_key"`
	DefaultModel    string `yaml:"default_model"`
	EmbedModel      string `yaml:"embed_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	ArticlePrompt   string `yaml:"article_prompt"`   // system prompt for generation jobs
	AnswerPrompt    string `yaml:"answer_prompt"`    // system prompt for the ask endpoint
}

type PublishConfig struct {
	URL            string        `yaml:"url"`
	LoginURL       string        `yaml:"login_url"`
	Email          string        `yaml:"email"`
	Password       string        `yaml:"password"`
	LoginTimeout   time.Duration `yaml:"login_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type WorkerConfig struct {
	IntervalMinutes int     `yaml:"interval_minutes"`
	PerJobMinutes   float64 `yaml:"per_job_minutes"`
}

type AnswerConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	SnapshotPath        string  `yaml:"snapshot_path"`
	PostURLBase         string  `yaml:"post_url_base"`
	RateLimitPerMinute  int     `yaml:"rate_limit_per_minute"`
}

type AdminConfig struct {
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Publish  PublishConfig  `yaml:"publish"`
	Worker   WorkerConfig   `yaml:"worker"`
	Answer   AnswerConfig   `yaml:"answer"`
	Admin    AdminConfig    `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-1.5-flash"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-004"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Publish.LoginTimeout <= 0 {
		cfg.Publish.LoginTimeout = 15 * time.Second
	}
	if cfg.Publish.PublishTimeout <= 0 {
		cfg.Publish.PublishTimeout = 30 * time.Second
	}
	if cfg.Worker.IntervalMinutes <= 0 {
		cfg.Worker.IntervalMinutes = 10
	}
	if cfg.Worker.PerJobMinutes <= 0 {
		cfg.Worker.PerJobMinutes = 2
	}
	if cfg.Answer.SimilarityThreshold <= 0 {
		cfg.Answer.SimilarityThreshold = 0.7
	}
	if cfg.Answer.TopK <= 0 {
		cfg.Answer.TopK = 3
	}
	if cfg.Answer.SnapshotPath == "" {
		cfg.Answer.SnapshotPath = "./vector_store"
	}
	if cfg.Answer.PostURLBase == "" {
		cfg.Answer.PostURLBase = "https://srvaau.com/dashboard/post"
	}
	if cfg.Answer.RateLimitPerMinute <= 0 {
		cfg.Answer.RateLimitPerMinute = 30
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	// Dev mode runs without a real model behind it.
	if !dev && cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("ai.gemini_key or ai.openai_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
