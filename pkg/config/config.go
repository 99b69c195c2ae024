// Copyright 2026 Stratum Authors
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

// Package config loads the YAML application config. The MCP fleet file
// it points at stays JSON and is loaded by pkg/mcp.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stratum-ai/stratum/pkg/reasoning"
)

// Defaults.
const (
	DefaultModel            = "claude-sonnet-4-20250514"
	DefaultMaxTokens        = 4096
	DefaultMCPServersPath   = "mcp_servers.json"
	DefaultSessionDir       = "~/.stratum/sessions"
	DefaultThresholdProfile = "balanced"
	DefaultOAuthPort        = 3030
)

// LLMConfig configures the model backend. APIKey supports ${VAR}
// expansion so keys stay out of config files.
type LLMConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	MaxTokens  int64         `yaml:"max_tokens"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ApprovalConfig gates the approval manager.
type ApprovalConfig struct {
	Enabled      bool `yaml:"enabled"`
	ToolApproval bool `yaml:"tool_approval"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// PricingConfig points at the optional cost table file.
type PricingConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ReasoningConfig tunes the adaptive loop.
type ReasoningConfig struct {
	ThresholdProfile string `yaml:"threshold_profile"`
	DirectShortcut   bool   `yaml:"direct_shortcut"`
}

// MCPConfig configures the connection fleet.
type MCPConfig struct {
	ServersFile string `yaml:"servers_file"`
	UseAuth     bool   `yaml:"use_auth"`
	OAuthPort   int    `yaml:"oauth_port"`
}

// Config is the application configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	MCP       MCPConfig       `yaml:"mcp"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Approval  ApprovalConfig  `yaml:"approval"`
	Session   SessionConfig   `yaml:"session"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.MCP.ServersFile == "" {
		c.MCP.ServersFile = DefaultMCPServersPath
	}
	if c.MCP.OAuthPort == 0 {
		c.MCP.OAuthPort = DefaultOAuthPort
	}
	if c.Reasoning.ThresholdProfile == "" {
		c.Reasoning.ThresholdProfile = DefaultThresholdProfile
	}
	if c.Session.Dir == "" {
		c.Session.Dir = DefaultSessionDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
}

// Validate rejects configurations the runtime cannot start with.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	if c.MCP.ServersFile == "" {
		return fmt.Errorf("mcp.servers_file must be set")
	}
	if _, err := reasoning.ThresholdProfile(c.Reasoning.ThresholdProfile); err != nil {
		return fmt.Errorf("reasoning.threshold_profile: %w", err)
	}
	return nil
}

// Thresholds resolves the configured threshold profile.
func (c *Config) Thresholds() reasoning.Thresholds {
	t, err := reasoning.ThresholdProfile(c.Reasoning.ThresholdProfile)
	if err != nil {
		return reasoning.DefaultThresholds()
	}
	return t
}

// Load reads a YAML config file. ${VAR} references are expanded from
// the environment before parsing. A missing or malformed file is a hard
// startup failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}
