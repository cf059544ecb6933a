package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/config"
	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/httpapi"
	"github.com/hannsv/PillGood/internal/notify"
	"github.com/hannsv/PillGood/internal/repository"
	"github.com/hannsv/PillGood/internal/service"
	"github.com/hannsv/PillGood/internal/sqlitestore"
	"go.uber.org/zap"
)

// scheduleStore is the schedule store shared by the service, scheduler and engine
type scheduleStore interface {
	service.Store
	adherence.Store
}

// notificationStore is the persisted gateway drained by the dispatcher
type notificationStore interface {
	notify.Gateway
	dispatcher.Source
	httpapi.NotificationLister
}

type storage struct {
	store         scheduleStore
	notifications notificationStore
	close         func()
}

func openStorage(ctx context.Context, cfg *config.Config, loc *time.Location, logger *zap.Logger) (*storage, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.DatabaseURI, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &storage{
			store:         repository.NewStore(db),
			notifications: repository.NewNotificationRepository(db, loc),
			close:         db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened SQLite store", zap.String("path", cfg.SQLitePath))
		return &storage{
			store:         db,
			notifications: sqlitestore.NewNotifications(db, loc),
			close:         func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
