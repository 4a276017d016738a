// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package config

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants shared by every binary. Binary-specific requirements (the
// server's DSN, the agent's server URL) are checked by the dedicated
// validators below, called from the respective main packages.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.MaxRecordsPerPull < 1 {
		return ErrInvalidSyncConfigs
	}

	return nil
}

// ValidateServer checks the invariants the server binary cannot start
// without.
func (cfg *StructuredConfig) ValidateServer() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" || cfg.App.TokenDuration == 0 {
		return ErrInvalidAppConfigs
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	return nil
}

// ValidateAgent checks the invariants the agent binary cannot start without.
func (cfg *StructuredConfig) ValidateAgent() error {
	if cfg.Storage.SQLite.Path == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Agent.ServerURL == "" || cfg.Agent.RequestTimeout == 0 {
		return ErrInvalidAgentConfigs
	}

	if cfg.Agent.SyncInterval == 0 {
		return ErrInvalidAgentConfigs
	}

	if cfg.Agent.Login == "" || cfg.Agent.Password == "" || cfg.Agent.DeviceID == "" {
		return ErrInvalidAgentConfigs
	}

	return nil
}
