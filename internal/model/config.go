package model

import "time"

// Config is the complete engine configuration
type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
	Data   DataConfig   `yaml:"data" json:"data"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// EngineConfig controls the evaluation scheduler
type EngineConfig struct {
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`         // Items per remainder batch
	BatchInterval time.Duration `yaml:"batch_interval" json:"batch_interval"` // Pacing between batches
	Background    bool          `yaml:"background" json:"background"`         // Run evaluation on a background scheduler
}

// DataConfig points at the dataset and dialect sources
type DataConfig struct {
	DatasetPath  string `yaml:"dataset_path" json:"dataset_path"`
	DialectsPath string `yaml:"dialects_path" json:"dialects_path"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" json:"level"` // debug, info, warn, error
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BatchSize:     10,
			BatchInterval: 5 * time.Millisecond,
			Background:    true,
		},
		Data: DataConfig{},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}
