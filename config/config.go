// Package config loads the client and server configuration from a YAML file,
// falling back to defaults for anything unset.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server is the relay's network address.
	Server string `yaml:"server,omitempty"`

	// Secure enables wss:// connections.
	Secure bool `yaml:"secure,omitempty"`

	// User is the display name shared through awareness.
	User string `yaml:"user,omitempty"`

	// Color is the cursor color other participants see.
	Color string `yaml:"color,omitempty"`

	// Doc is the document name to join on the relay.
	Doc string `yaml:"doc,omitempty"`

	// File is the local file to save/load document snapshots.
	File string `yaml:"file,omitempty"`

	// CursorDebounceMs is the quiet interval before cursor broadcasts.
	CursorDebounceMs int `yaml:"cursor_debounce_ms,omitempty"`
}

var DefaultConfig = Config{
	Server:           "localhost:8080",
	Color:            "cyan",
	Doc:              "default",
	CursorDebounceMs: 100,
}

// Load reads the config file and overrides the defaults with whatever it
// sets. A missing or unreadable file yields the defaults.
func Load(fileName string) Config {
	conf := DefaultConfig

	data, err := os.ReadFile(fileName)
	if err != nil {
		return conf
	}

	var fileConf Config
	if err := yaml.Unmarshal(data, &fileConf); err != nil {
		return conf
	}

	if fileConf.Server != "" {
		conf.Server = fileConf.Server
	}
	if fileConf.Secure {
		conf.Secure = true
	}
	if fileConf.User != "" {
		conf.User = fileConf.User
	}
	if fileConf.Color != "" {
		conf.Color = fileConf.Color
	}
	if fileConf.Doc != "" {
		conf.Doc = fileConf.Doc
	}
	if fileConf.File != "" {
		conf.File = fileConf.File
	}
	if fileConf.CursorDebounceMs > 0 {
		conf.CursorDebounceMs = fileConf.CursorDebounceMs
	}

	return conf
}
