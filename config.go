// Copyright 2025 Amit Akki
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ocrchatqa

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OCR engine selection values for OCRConfig.Engine.
const (
	OCREngineLocal  = "local"
	OCREngineRemote = "remote"
)

// EmbeddingConfig configures the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// OCRConfig selects and configures the OCR engine.
type OCRConfig struct {
	Engine     string `yaml:"engine"`
	Binary     string `yaml:"binary"`
	Language   string `yaml:"language"`
	Rasterizer string `yaml:"rasterizer"`
	DPI        int    `yaml:"dpi"`
	Endpoint   string `yaml:"endpoint"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// ChunkingConfig configures how extracted text is split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Config is the root application configuration.
type Config struct {
	DataDir            string          `yaml:"data_dir"`
	ArtifactDir        string          `yaml:"artifact_dir"`
	Workers            int             `yaml:"workers"`
	ExtractTimeoutSecs int             `yaml:"extract_timeout_secs"`
	Embedding          EmbeddingConfig `yaml:"embedding"`
	OCR                OCRConfig       `yaml:"ocr"`
	Chunking           ChunkingConfig  `yaml:"chunking"`
}

// ExtractTimeout returns the per-document extraction deadline.
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.ExtractTimeoutSecs) * time.Second
}

// DefaultConfig returns a configuration suitable for a local Ollama
// deployment with tesseract installed.
func DefaultConfig() *Config {
	return &Config{
		DataDir:            "data/db",
		ArtifactDir:        "data/artifacts",
		Workers:            0, // orchestrator picks NumCPU/2
		ExtractTimeoutSecs: 600,
		Embedding: EmbeddingConfig{
			Host:      "http://localhost:11434/v1",
			Model:     "nomic-embed-text",
			BatchSize: 32,
		},
		OCR: OCRConfig{
			Engine:     OCREngineLocal,
			Binary:     "tesseract",
			Language:   "eng",
			Rasterizer: "pdftoppm",
			DPI:        300,
			APIKeyEnv:  "OCR_API_KEY",
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
	}
}

// LoadConfig reads a YAML config from path. A missing file returns defaults;
// a present file is merged over them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// Validate checks cross-field constraints before the system is wired.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.ArtifactDir == "" {
		return errors.New("artifact_dir is required")
	}
	switch c.OCR.Engine {
	case OCREngineLocal, OCREngineRemote:
	default:
		return fmt.Errorf("unknown ocr engine %q: must be %q or %q",
			c.OCR.Engine, OCREngineLocal, OCREngineRemote)
	}
	if c.OCR.Engine == OCREngineRemote && c.OCR.Endpoint == "" {
		return errors.New("ocr endpoint is required for the remote engine")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap %d must be in [0, %d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	return nil
}

func applyConfigDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.ExtractTimeoutSecs == 0 {
		cfg.ExtractTimeoutSecs = def.ExtractTimeoutSecs
	}
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = def.Embedding.Host
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = def.OCR.Engine
	}
	if cfg.OCR.Binary == "" {
		cfg.OCR.Binary = def.OCR.Binary
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = def.OCR.Language
	}
	if cfg.OCR.Rasterizer == "" {
		cfg.OCR.Rasterizer = def.OCR.Rasterizer
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = def.OCR.DPI
	}
	if cfg.OCR.APIKeyEnv == "" {
		cfg.OCR.APIKeyEnv = def.OCR.APIKeyEnv
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = def.Chunking.Size
	}
	if cfg.Chunking.Overlap == 0 && cfg.Chunking.Size == def.Chunking.Size {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
}
