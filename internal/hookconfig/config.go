// Package hookconfig loads a hook's Options from a YAML file, the one
// concrete file-based configuration format this repository ships; the core
// hook package itself never reads a file.
package hookconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/hookbus/pkg/hook"
)

// FileConfig is the top-level shape of a hookbus.yml file.
type FileConfig struct {
	Version string          `yaml:"version"`
	Name    string          `yaml:"name"`
	Type    string          `yaml:"type"`
	Network NetworkConfig   `yaml:"network"`
	Debug   bool            `yaml:"debug,omitempty"`
	Quiet   bool            `yaml:"quiet,omitempty"`
	Transports []Transport  `yaml:"transports,omitempty"`
	Hooks   []HookSpec      `yaml:"hooks,omitempty"`
}

// NetworkConfig specifies how the hook binds or dials.
type NetworkConfig struct {
	Host                string `yaml:"host,omitempty"`
	Port                int    `yaml:"port,omitempty"`
	Socket              string `yaml:"socket,omitempty"`
	ReconnectMaxElapsed string `yaml:"reconnect_max_elapsed,omitempty"`
}

// Transport declares one auxiliary transport to instantiate.
type Transport struct {
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options,omitempty"`
}

// HookSpec declares one child hook to spawn once this hook has started.
type HookSpec struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type,omitempty"`
	Command string         `yaml:"command,omitempty"`
	Args    []string       `yaml:"args,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Validate checks the required fields are present and well formed.
func (c *FileConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Network.Socket == "" && c.Network.Port == 0 {
		return fmt.Errorf("network.port or network.socket is required")
	}
	for i, h := range c.Hooks {
		if h.Name == "" {
			return fmt.Errorf("hooks[%d]: name is required", i)
		}
	}
	return nil
}

// Load reads, parses, and validates a hookbus.yml file at path.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ToOptions builds a hook.Options from a parsed FileConfig. Transports are
// carried through as hook.TransportSpec for the caller's hook.New to
// resolve against whatever drivers it has registered; spawning, if any
// hooks are declared, still requires the caller to supply a hook.Spawner.
func (c *FileConfig) ToOptions() hook.Options {
	opts := hook.Options{
		Name:   c.Name,
		Type:   c.Type,
		Host:   c.Network.Host,
		Port:   c.Network.Port,
		Socket: c.Network.Socket,
		Debug:  c.Debug,
		Quiet:  c.Quiet,
	}

	if c.Network.ReconnectMaxElapsed != "" {
		if d, err := time.ParseDuration(c.Network.ReconnectMaxElapsed); err == nil {
			opts.ReconnectMaxElapsed = d
		}
	}

	for _, t := range c.Transports {
		opts.Transports = append(opts.Transports, hook.TransportSpec{Type: t.Type, Options: t.Options})
	}

	for _, h := range c.Hooks {
		opts.Hooks = append(opts.Hooks, hook.ChildSpec{
			Name:    h.Name,
			Type:    h.Type,
			Command: h.Command,
			Args:    h.Args,
			Options: h.Options,
		})
	}

	return opts
}
