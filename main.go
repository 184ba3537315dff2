package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/care-booking-service/config"
	"github.com/Eursukkul/care-booking-service/internal/consumer"
	"github.com/Eursukkul/care-booking-service/internal/handler"
	"github.com/Eursukkul/care-booking-service/internal/middleware"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/Eursukkul/care-booking-service/pkg/cache"
	"github.com/Eursukkul/care-booking-service/pkg/clock"
	"github.com/Eursukkul/care-booking-service/pkg/database"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	"github.com/Eursukkul/care-booking-service/pkg/rabbitmq"
	"github.com/Eursukkul/care-booking-service/pkg/tracing"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.LogMode,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		log.Fatal("failed to init tracing", "error", err)
	}

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", "error", err)
	}
	defer publisher.Close()

	// RabbitMQ consumer: payment confirmations from the payment service
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, "booking.payments", consumer.RoutingPaymentPaid)
	if err != nil {
		log.Fatal("failed to declare payment queue", "error", err)
	}
	defer mqConsumer.Close()

	// Repositories
	notificationRepo := repository.NewNotificationRepository(db)
	deps := service.Deps{
		Tx:             repository.NewTransactor(db),
		Users:          repository.NewUserRepository(db),
		Caregivers:     repository.NewCaregiverRepository(db),
		Bookings:       repository.NewBookingRepository(db),
		StatusHistory:  repository.NewHistoryRepository(db),
		Notes:          repository.NewNoteRepository(db),
		VideoCalls:     repository.NewVideoCallRepository(db),
		Chats:          repository.NewChatRepository(db),
		ConsumedEvents: repository.NewConsumedEventRepository(db),
		Events:         publisher,
		Clock:          clock.Real(),
		Log:            log,
	}

	// The slot cache is advisory; run without it when Redis is down.
	if rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Warn("redis unavailable, slot cache disabled", "error", err)
	} else {
		defer rdb.Close()
		deps.Cache = cache.NewSlotCache(rdb, cfg.SlotCacheTTL)
	}

	notifier := notification.NewService(notificationRepo, publisher, log)
	dispatcher := notification.NewDispatcher(notifier, cfg.NotifyTimeout, log)
	deps.Notifier = dispatcher

	// Services
	allocator := service.NewAllocator(deps)
	availability := service.NewAvailabilityService(deps)
	bookingSvc := service.NewBookingService(deps, allocator, availability)
	slotSvc := service.NewSlotService(deps, service.SlotOptions{
		Buffer:   cfg.SlotQueryBuffer,
		MaxRange: cfg.MaxSlotRange,
	})
	videoCallSvc := service.NewVideoCallService(deps, allocator, availability, cfg.VideoCallBaseURL)
	chatSvc := service.NewChatService(deps)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Validator = middleware.NewValidator()
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "care-booking-service"})
	})

	api := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	handler.NewBookingHandler(bookingSvc, slotSvc).RegisterRoutes(api)
	handler.NewVideoCallHandler(videoCallSvc).RegisterRoutes(api)
	handler.NewChatHandler(chatSvc).RegisterRoutes(api)
	handler.NewNotificationHandler(notifier).RegisterRoutes(api)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		msgs, err := mqConsumer.Consume(gctx)
		if err != nil {
			return err
		}
		log.Info("consuming payment events", "queue", mqConsumer.Queue())
		return consumer.NewPaymentConsumer(bookingSvc, log).Run(gctx, msgs)
	})

	g.Go(func() error {
		log.Info("care booking service starting", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		dispatcher.Wait()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", "error", err)
		return
	}
	log.Info("care booking service stopped")
}
