package config

import "errors"

var (
	// ErrInvalidStorageConfigs indicates a missing or unusable storage
	// backend configuration (server DSN or agent SQLite path).
	ErrInvalidStorageConfigs = errors.New("invalid storage configs")

	// ErrInvalidAppConfigs indicates missing token parameters.
	ErrInvalidAppConfigs = errors.New("invalid app configs")

	// ErrInvalidServerConfigs indicates a missing HTTP listen address.
	ErrInvalidServerConfigs = errors.New("invalid server configs")

	// ErrInvalidAgentConfigs indicates missing agent connectivity settings.
	ErrInvalidAgentConfigs = errors.New("invalid agent configs")

	// ErrInvalidSyncConfigs indicates an unusable pull page size.
	ErrInvalidSyncConfigs = errors.New("invalid sync configs")
)
