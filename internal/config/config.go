// Package config reads engine settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries everything needed to bring up the sound engine.
// Zero-value paths mean the embedded default assets.
type Config struct {
	Enabled      bool    `env:"SFX_ENABLED" envDefault:"true"`
	SampleRate   int     `env:"SFX_SAMPLE_RATE" envDefault:"48000"`
	MasterVolume float64 `env:"SFX_MASTER_VOLUME" envDefault:"1.0"`
	Seed         uint64  `env:"SFX_SEED" envDefault:"0"`
	MaxChannels  int     `env:"SFX_MAX_CHANNELS" envDefault:"30"`
	CatalogPath  string  `env:"SFX_CATALOG"`
	RecipePath   string  `env:"SFX_RECIPES"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("config: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.MasterVolume < 0 || cfg.MasterVolume > 1 {
		return Config{}, fmt.Errorf("config: master volume must be 0..1, got %g", cfg.MasterVolume)
	}
	if cfg.MaxChannels <= 0 {
		return Config{}, fmt.Errorf("config: max channels must be positive, got %d", cfg.MaxChannels)
	}
	return cfg, nil
}
