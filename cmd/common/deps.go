// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
	"github.com/adiazpar/starview-agent/internal/store"
)

// CommandDeps holds the dependencies every pipeline command needs.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Interface
	Store  *store.Store
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Config == nil {
		return ErrConfigRequired
	}
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Store == nil {
		return ErrStoreRequired
	}
	return nil
}

// BuildDeps loads configuration from viper and constructs the shared
// dependencies.
func BuildDeps() (*CommandDeps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &CommandDeps{
		Config: cfg,
		Logger: log,
		Store:  store.New(cfg.Paths),
	}, nil
}
