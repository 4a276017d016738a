package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/partocare/partosync/internal/adapter"
	"github.com/partocare/partosync/internal/agent"
	"github.com/partocare/partosync/internal/config"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/store"
	"github.com/partocare/partosync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewAgentLogger("partosync-agent")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if err = cfg.ValidateAgent(); err != nil {
		log.Fatal().Err(err).Msg("invalid agent configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	tables := store.NewRegistry().TablesByDependency()

	local, err := agent.NewSQLiteStore(ctx, cfg.Storage.SQLite.Path, tables, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening local database")
	}
	defer local.Close()

	server := adapter.NewHTTPServerAdapter(adapter.HTTPClientConfig{
		BaseURL: cfg.Agent.ServerURL,
		Timeout: cfg.Agent.RequestTimeout,
	})

	staff, err := server.Login(ctx, models.Staff{
		Login:    cfg.Agent.Login,
		Password: cfg.Agent.Password,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error logging in")
	}
	log.Info().Int64("staff_id", staff.StaffID).Msg("authenticated")

	label := cfg.Agent.DeviceLabel
	if label == "" {
		if hostname, hostErr := os.Hostname(); hostErr == nil {
			label = hostname
		}
	}

	_, err = server.RegisterDevice(ctx, models.Device{
		DeviceID: cfg.Agent.DeviceID,
		Label:    label,
	})
	switch {
	case errors.Is(err, adapter.ErrDeviceAlreadyBound):
		log.Debug().Str("device_id", cfg.Agent.DeviceID).Msg("device already registered")
	case err != nil:
		log.Fatal().Err(err).Msg("error registering device")
	default:
		log.Info().Str("device_id", cfg.Agent.DeviceID).Msg("device registered")
	}

	runner := agent.NewSyncRunner(server, local, tables, cfg.Agent.DeviceID, log)
	if err = runner.RunCycle(ctx); err != nil {
		log.Error().Err(err).Msg("initial sync cycle failed; background job will retry")
	}

	job := agent.NewSyncJob(runner, log)
	job.Start(ctx, cfg.Agent.SyncInterval)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	job.Stop()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
