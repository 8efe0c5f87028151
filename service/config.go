package service

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stencilworks/redline/editor"
	"github.com/stencilworks/redline/proposal"
)

// Config holds all service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	// ChunkSize bounds each proposal-collaborator request.
	ChunkSize int `yaml:"chunk_size"`

	Proposal proposal.ClientConfig `yaml:"proposal"`
	Editor   editor.Config         `yaml:"editor"`
}

func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8086"
	}
	if c.DBPath == "" {
		c.DBPath = "redline.db"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = proposal.DefaultChunkSize
	}
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}
