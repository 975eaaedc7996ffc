package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/smartticket/api"
	"github.com/Domenick1991/smartticket/config"
	"github.com/Domenick1991/smartticket/internal/bootstrap"
	"github.com/Domenick1991/smartticket/internal/cache"
	"github.com/Domenick1991/smartticket/internal/email"
	"github.com/Domenick1991/smartticket/internal/kafka"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/metrics"
	"github.com/Domenick1991/smartticket/internal/notification"
	"github.com/Domenick1991/smartticket/internal/repository"
	"github.com/Domenick1991/smartticket/internal/service/booking"
	"github.com/Domenick1991/smartticket/internal/service/routes"
	"github.com/Domenick1991/smartticket/internal/ticket"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(cfg.Log.Level)
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Fatal("app stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, appLog logger.Logger) error {
	baseFare, err := cfg.Booking.BaseFare()
	if err != nil {
		return err
	}
	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("smartticket", reg)

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.RoutesTTL(), cfg.Booking.TicketTTL())
	defer redisCache.Close()

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, appLog)
		defer producer.Close()
	}

	sender, err := newMailSender(ctx, cfg, producer, appLog)
	if err != nil {
		return err
	}

	routeService := routes.NewRouteService(repository.NewRouteRepository(pool), redisCache, baseFare, appLog)
	generator := ticket.NewGenerator(ticket.NewPDFRenderer(), cfg.Booking.Currency)
	dispatcher := notification.NewDispatcher(sender, cfg.Mail.From, cfg.Booking.Currency)
	tasks := booking.NewTaskRunner(appLog, m)

	opts := []booking.BookingServiceOption{
		booking.WithTicketStore(redisCache),
		booking.WithLocation(loc),
		booking.WithPublicTicketDownload(*cfg.Booking.PublicTicketDownload),
		booking.WithLogger(appLog),
		booking.WithMetrics(m),
	}
	if producer != nil && cfg.Kafka.BookingEventsTopic != "" {
		opts = append(opts, booking.WithEvents(producer, cfg.Kafka.BookingEventsTopic))
	}
	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		routeService,
		generator,
		dispatcher,
		tasks,
		opts...,
	)

	checks := map[string]bootstrap.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisCache.Ping,
	}
	if producer != nil {
		checks["kafka"] = producer.CheckConnection
	}

	gin.SetMode(gin.ReleaseMode)
	router := bootstrap.NewRouter(cfg.HTTP, bootstrap.Dependencies{
		Bookings: bookingService,
		Routes:   routeService,
		Auth:     api.NewAuthenticator(cfg.Auth.JWTSecret),
		Gatherer: reg,
		Checks:   checks,
		Log:      appLog,
	})

	err = bootstrap.Run(ctx, cfg.HTTP, router, appLog)
	appLog.Info("waiting for background tasks")
	tasks.Wait()
	return err
}

func newMailSender(ctx context.Context, cfg *config.Config, producer *kafka.Producer, appLog logger.Logger) (email.Sender, error) {
	switch cfg.Mail.Transport {
	case "gmail":
		gmail := cfg.Mail.Gmail
		ts := email.GmailTokenSource(ctx, gmail.ClientID, gmail.ClientSecret, gmail.RefreshToken)
		return email.NewGmailSender(ctx, ts, cfg.Mail.From, appLog)
	case "kafka":
		if producer == nil {
			return nil, fmt.Errorf("mail transport kafka needs kafka.brokers")
		}
		return kafka.NewMailQueue(producer, cfg.Kafka.NotificationsTopic), nil
	default:
		return email.NewLogSender(appLog), nil
	}
}
