package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/bot"
	"github.com/hannsv/PillGood/internal/config"
	"github.com/hannsv/PillGood/internal/dedupe"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/events"
	"github.com/hannsv/PillGood/internal/httpapi"
	"github.com/hannsv/PillGood/internal/logger"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/notify"
	"github.com/hannsv/PillGood/internal/scheduler"
	"github.com/hannsv/PillGood/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	loc := models.LoadLocation(cfg.Timezone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStorage(ctx, cfg, loc, zl)
	if err != nil {
		zl.Fatal("Failed to open storage", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	var publisher events.Publisher = events.Nop{}
	if cfg.MQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.MQURL, zl)
		if err != nil {
			zl.Warn("Event publishing disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	permission := notify.NewPermission(cfg.NotificationsEnabled)
	sched := scheduler.New(notify.WithPermission(st.notifications, permission), st.store, zl)
	svc := service.New(st.store, sched, publisher, zl, service.WithPermission(permission))

	// a switch saved through the API or bot wins over NOTIFICATIONS_ENABLED
	svc.RestoreNotifications(ctx)
	if !svc.NotificationsEnabled() {
		zl.Warn("Notifications disabled, reminders will not be scheduled")
	}
	if err := sched.ReconcileAll(ctx); err != nil {
		zl.Error("Initial reconcile finished with errors", zap.Error(err))
	}

	var guard dedupe.Guard = dedupe.NewMemory()
	if cfg.RedisAddr != "" {
		client := dedupe.NewRedisClient(dedupe.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		guard = dedupe.NewRedisGuard(client, zl)
		zl.Info("Using Redis delivery dedupe", zap.String("addr", cfg.RedisAddr))
	}

	engine := adherence.New(st.store, publisher, zl, loc)

	var sender dispatcher.Sender = dispatcher.NewLogSender(zl)
	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken, cfg.TelegramChatID, engine, svc, loc, zl)
		if err != nil {
			zl.Fatal("Failed to create bot", zap.Error(err))
		}
		sender = b
		go func() {
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("Bot stopped", zap.Error(err))
			}
		}()
	} else {
		zl.Info("Telegram not configured, reminders go to the log")
	}

	disp := dispatcher.New(st.notifications, sender, guard, zl, loc, cfg.DispatchInterval)
	go disp.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(svc, engine, st.notifications, sender, zl), zl),
	}
	go func() {
		zl.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	zl.Info("Shutting down...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP shutdown error", zap.Error(err))
	}
}
