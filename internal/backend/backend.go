// Package backend builds the storage, archive and event backends selected by
// the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/repository/gormstore"
	"github.com/kuldeep456789/VisionIQ/internal/repository/postgres"
	"github.com/kuldeep456789/VisionIQ/internal/repository/sqlite"
	"github.com/kuldeep456789/VisionIQ/internal/service/events"
	"github.com/kuldeep456789/VisionIQ/internal/service/storage"
)

// OpenStore opens the configured store and applies its schema. It returns
// nil for StorageNone.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StorageBackend == config.StorageNone {
		return nil, nil
	}
	if cfg.StorageBackend != config.StorageSQLite && cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN must be set for the %s backend", cfg.StorageBackend)
	}

	var (
		store repository.Store
		err   error
	)
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		store, err = sqlite.Open(cfg.SQLitePath)
	case config.StoragePostgres:
		store, err = postgres.Open(ctx, cfg.DatabaseDSN)
	case config.StorageGorm:
		store, err = gormstore.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Archive is an image archive together with the background work it needs.
type Archive struct {
	storage.Archive
	// Run is non-nil for archives that flush in the background.
	Run func(ctx context.Context)
}

// OpenArchive builds the configured image archive. It returns nil for
// ArchiveNone.
func OpenArchive(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Archive, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveNone:
		return nil, nil
	case config.ArchiveDisk:
		disk, err := storage.NewDiskArchive(cfg.ArchiveDirectory, cfg.ArchiveBufferLimit, log)
		if err != nil {
			return nil, err
		}
		interval := cfg.ArchiveFlushInterval
		return &Archive{
			Archive: disk,
			Run:     func(ctx context.Context) { disk.Run(ctx, interval) },
		}, nil
	case config.ArchiveS3:
		s3, err := storage.NewS3Archive(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return &Archive{Archive: s3}, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

// ConnectMQTT connects the MQTT publisher when a broker is configured and
// returns nil otherwise.
func ConnectMQTT(ctx context.Context, cfg *config.Config, log *logger.Logger) (*events.MQTTPublisher, error) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}
	if cfg.MQTTQoS < 0 || cfg.MQTTQoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.MQTTQoS)
	}
	pub, err := events.NewMQTTPublisher(events.MQTTOptions{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Topic:    cfg.MQTTTopic,
		QoS:      byte(cfg.MQTTQoS),
		Encoding: cfg.MQTTEncoding,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := pub.Connect(ctx); err != nil {
		return nil, err
	}
	return pub, nil
}
