package common

import "errors"

var (
	// ErrConfigRequired is returned when CommandDeps.Config is nil
	ErrConfigRequired = errors.New("config is required")

	// ErrLoggerRequired is returned when CommandDeps.Logger is nil
	ErrLoggerRequired = errors.New("logger is required")

	// ErrStoreRequired is returned when CommandDeps.Store is nil
	ErrStoreRequired = errors.New("store is required")
)
