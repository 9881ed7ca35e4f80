// Package config loads the TOML configuration for the terralink binaries.
// Absent keys keep their defaults; present keys are validated on load.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"terralink/internal/voxel"
)

var (
	ErrNoAddress     = errors.New("config: service address required")
	ErrBadQueueDepth = errors.New("config: queue depth must be positive")
	ErrBadHeights    = errors.New("config: min_height must be below max_height")
	ErrBadLevel      = errors.New("config: compression level out of range")
)

// Compression levels follow flate: -2 (huffman only) through 9; zero
// keeps the codec default.
const (
	minCompressionLevel = -2
	maxCompressionLevel = 9
)

// ClientConfig drives the terractl binary.
type ClientConfig struct {
	Address          string
	Generator        string
	QueueDepth       int
	MaxPayloadBytes  uint32
	CompressionLevel int
	DialTimeout      time.Duration
	TickInterval     time.Duration
	LogLevel         string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Address:      "127.0.0.1:47900",
		Generator:    "flatworld",
		QueueDepth:   32,
		DialTimeout:  5 * time.Second,
		TickInterval: 5 * time.Millisecond,
		LogLevel:     "info",
	}
}

func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrNoAddress
	}
	if c.QueueDepth <= 0 {
		return ErrBadQueueDepth
	}
	if c.CompressionLevel < minCompressionLevel || c.CompressionLevel > maxCompressionLevel {
		return ErrBadLevel
	}
	return nil
}

// GeneratorConfig pre-registers one generator instance at server start.
type GeneratorConfig struct {
	Name         string
	MinHeight    int32
	MaxHeight    int32
	DefaultBlock voxel.BlockID
}

// ServerConfig drives the terrastubd binary.
type ServerConfig struct {
	Listen           string
	QueueDepth       int
	MaxPayloadBytes  uint32
	CompressionLevel int
	ShutdownGrace    time.Duration
	Generators       []GeneratorConfig
	LogLevel         string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:        "127.0.0.1:47900",
		QueueDepth:    32,
		ShutdownGrace: 3 * time.Second,
		Generators: []GeneratorConfig{
			{Name: "flatworld", MinHeight: 0, MaxHeight: 64, DefaultBlock: 1},
		},
		LogLevel: "info",
	}
}

func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return ErrNoAddress
	}
	if c.QueueDepth <= 0 {
		return ErrBadQueueDepth
	}
	if c.CompressionLevel < minCompressionLevel || c.CompressionLevel > maxCompressionLevel {
		return ErrBadLevel
	}
	for _, g := range c.Generators {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("config: generator with empty name")
		}
		if g.MinHeight >= g.MaxHeight {
			return fmt.Errorf("%w: generator %q", ErrBadHeights, g.Name)
		}
	}
	return nil
}

type clientFile struct {
	Address          string `toml:"address"`
	Generator        string `toml:"generator"`
	QueueDepth       int    `toml:"queue_depth"`
	MaxPayloadBytes  uint32 `toml:"max_payload_bytes"`
	CompressionLevel int    `toml:"compression_level"`
	DialTimeout      string `toml:"dial_timeout"`
	TickInterval     string `toml:"tick_interval"`
	LogLevel         string `toml:"log_level"`
}

// LoadClientConfig merges path over the client defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("generator") {
		cfg.Generator = strings.TrimSpace(raw.Generator)
	}
	if meta.IsDefined("queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("compression_level") {
		cfg.CompressionLevel = raw.CompressionLevel
	}
	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	if meta.IsDefined("tick_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TickInterval))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse tick_interval: %w", err)
		}
		cfg.TickInterval = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

type serverFile struct {
	Listen           string          `toml:"listen"`
	QueueDepth       int             `toml:"queue_depth"`
	MaxPayloadBytes  uint32          `toml:"max_payload_bytes"`
	CompressionLevel int             `toml:"compression_level"`
	ShutdownGrace    string          `toml:"shutdown_grace"`
	LogLevel         string          `toml:"log_level"`
	Generators       []generatorFile `toml:"generators"`
}

type generatorFile struct {
	Name         string `toml:"name"`
	MinHeight    int32  `toml:"min_height"`
	MaxHeight    int32  `toml:"max_height"`
	DefaultBlock uint32 `toml:"default_block"`
}

// LoadServerConfig merges path over the server defaults. Defining any
// generator replaces the default set.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	var raw serverFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("load server config: %w", err)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("compression_level") {
		cfg.CompressionLevel = raw.CompressionLevel
	}
	if meta.IsDefined("shutdown_grace") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownGrace))
		if err != nil {
			return ServerConfig{}, fmt.Errorf("parse shutdown_grace: %w", err)
		}
		cfg.ShutdownGrace = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("generators") {
		cfg.Generators = make([]GeneratorConfig, 0, len(raw.Generators))
		for _, g := range raw.Generators {
			cfg.Generators = append(cfg.Generators, GeneratorConfig{
				Name:         strings.TrimSpace(g.Name),
				MinHeight:    g.MinHeight,
				MaxHeight:    g.MaxHeight,
				DefaultBlock: voxel.BlockID(g.DefaultBlock),
			})
		}
	}

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}
