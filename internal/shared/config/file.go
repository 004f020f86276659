package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML config file. Every field is optional;
// environment variables take precedence over anything set here.
type fileConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Server struct {
		Port             string   `yaml:"port"`
		CORSAllowOrigins []string `yaml:"cors_allow_origins"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Storage struct {
		Type     string `yaml:"type"`
		LocalDir string `yaml:"local_dir"`
		S3       struct {
			Region   string `yaml:"region"`
			Bucket   string `yaml:"bucket"`
			Prefix   string `yaml:"prefix"`
			KMSKeyID string `yaml:"kms_key_id"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	LLM struct {
		Provider         string `yaml:"provider"`
		Model            string `yaml:"model"`
		OllamaURL        string `yaml:"ollama_url"`
		Timeout          string `yaml:"timeout"`
		MaxContextTokens int    `yaml:"max_context_tokens"`
	} `yaml:"llm"`

	Processing struct {
		MaxUploadBytes int    `yaml:"max_upload_bytes"`
		StaleAfter     string `yaml:"stale_after"`
		RecoverOnStart *bool  `yaml:"recover_on_start"`
		StatsCacheTTL  string `yaml:"stats_cache_ttl"`
	} `yaml:"processing"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}
