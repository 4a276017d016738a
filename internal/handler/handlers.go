package handler

import (
	"github.com/partocare/partosync/internal/handler/http"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, logger *logger.Logger) *Handlers {
	logger.Info().Msg("creating new handlers...")

	return &Handlers{
		HTTP: http.NewHandler(services, logger),
	}
}
