package ocrchatqa

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/db", cfg.DataDir)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, OCREngineLocal, cfg.OCR.Engine)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 10*time.Minute, cfg.ExtractTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /var/lib/docqa
workers: 4
embedding:
  model: all-minilm
ocr:
  engine: remote
  endpoint: https://ocr.example.com/v1/recognize
chunking:
  size: 500
  overlap: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docqa", cfg.DataDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	// Unset fields keep their defaults
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, OCREngineRemote, cfg.OCR.Engine)
	assert.Equal(t, "https://ocr.example.com/v1/recognize", cfg.OCR.Endpoint)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "defaults pass",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "missing artifact dir",
			mutate:  func(c *Config) { c.ArtifactDir = "" },
			wantErr: "artifact_dir",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.OCR.Engine = "cloudy" },
			wantErr: "unknown ocr engine",
		},
		{
			name: "remote engine without endpoint",
			mutate: func(c *Config) {
				c.OCR.Engine = OCREngineRemote
				c.OCR.Endpoint = ""
			},
			wantErr: "endpoint",
		},
		{
			name:    "overlap not less than size",
			mutate:  func(c *Config) { c.Chunking.Overlap = c.Chunking.Size },
			wantErr: "overlap",
		},
		{
			name:    "missing embedding model",
			mutate:  func(c *Config) { c.Embedding.Model = "" },
			wantErr: "embedding model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
