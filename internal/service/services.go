package service

import (
	"github.com/partocare/partosync/internal/config"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/store"
)

type Services struct {
	AuthService    AuthService
	SyncService    SyncService
	AppInfoService AppInfoService
}

func NewServices(storages *store.Storages, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	return &Services{
		AuthService:    NewAuthService(storages.Staff, cfg.App, logger),
		SyncService:    NewSyncService(storages.Sync, storages.Registry, cfg.Sync, logger),
		AppInfoService: NewAppInfoService(cfg.App, logger),
	}
}
