package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/auth"
	"github.com/kuldeep456789/VisionIQ/internal/backend"
	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/route"
	"github.com/kuldeep456789/VisionIQ/internal/service"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"github.com/kuldeep456789/VisionIQ/internal/service/events"
	"github.com/kuldeep456789/VisionIQ/internal/service/storage"
	hub "github.com/kuldeep456789/VisionIQ/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	store    repository.Store
	detector ai.Detector
	archive  *backend.Archive
	hub      *hub.Hub
	mqtt     *events.MQTTPublisher
	handler  http.Handler
}

// New builds every backend selected by cfg and the HTTP routes on top of
// them. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) (err error) {
	cfg, log := a.config, a.logger

	if a.store, err = backend.OpenStore(ctx, cfg); err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StorageBackend, err)
	}
	if a.archive, err = backend.OpenArchive(ctx, cfg, log); err != nil {
		return fmt.Errorf("failed to open %s archive: %w", cfg.ArchiveBackend, err)
	}
	if a.detector, err = newDetector(cfg, log); err != nil {
		return fmt.Errorf("failed to load %s detector: %w", cfg.Detector, err)
	}

	a.hub = hub.NewHub(log)
	publishers := events.Multi{a.hub}
	if a.mqtt, err = backend.ConnectMQTT(ctx, cfg, log); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	if a.mqtt != nil {
		publishers = append(publishers, a.mqtt)
	}

	var (
		users   repository.UserRepository
		logs    repository.DetectionLogRepository
		archive storage.Archive
	)
	if a.store != nil {
		users = a.store.Users()
		logs = a.store.DetectionLogs()
	}
	if a.archive != nil {
		archive = a.archive.Archive
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	a.handler = route.SetupRoutes(route.Dependencies{
		Config: cfg,
		Logger: log,
		Tokens: tokens,
		Detection: service.NewDetectionService(a.detector, logs, archive, publishers, service.DetectionOptions{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			PersistByDefault:    cfg.PersistDetections,
		}, log),
		Auth:    service.NewAuthService(users, tokens, auth.NewHasher(cfg.BcryptCost), log),
		History: service.NewHistoryService(logs, archive, log),
		Hub:     a.hub,
		Store:   a.store,
	})
	return nil
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go a.hub.Run(bgCtx)
	stopArchive := a.archive.Start()

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	storageName := "none"
	if a.store != nil {
		storageName = a.store.Name()
	}
	a.logger.Info("VisionIQ server listening on %s (detector=%s storage=%s archive=%s)",
		server.Addr, a.detector.Name(), storageName, a.config.ArchiveBackend)

	err := backend.Serve(ctx, server, shutdownTimeout, a.logger)

	// viewers are closed and the archive flushed whichever way Serve returned
	stopBackground()
	stopArchive()
	return err
}

// Close releases the detector, the MQTT connection and the store.
func (a *App) Close() error {
	var errs []error
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
