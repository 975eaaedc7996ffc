package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/smartticket/config"
	"github.com/Domenick1991/smartticket/internal/email"
	"github.com/Domenick1991/smartticket/internal/kafka"
	"github.com/Domenick1991/smartticket/internal/logger"
)

// The worker delivers mail that the app enqueued with mail.transport=kafka.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	workerLog := logger.New(cfg.Log.Level).With("component", "mail-worker")
	defer workerLog.Sync()

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.NotificationsTopic == "" {
		workerLog.Fatal("kafka.brokers and kafka.notifications_topic are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender email.Sender = email.NewLogSender(workerLog)
	if cfg.Mail.Gmail.RefreshToken != "" {
		gmail := cfg.Mail.Gmail
		ts := email.GmailTokenSource(ctx, gmail.ClientID, gmail.ClientSecret, gmail.RefreshToken)
		gmailSender, err := email.NewGmailSender(ctx, ts, cfg.Mail.From, workerLog)
		if err != nil {
			workerLog.Fatal("create gmail sender", "error", err)
		}
		sender = gmailSender
	} else {
		workerLog.Warn("no gmail credentials, queued mail will only be logged")
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, workerLog)
	defer consumer.Close()

	workerLog.Info("consuming mail queue", "topic", cfg.Kafka.NotificationsTopic, "group", cfg.Kafka.GroupID)
	if err := consumer.Consume(ctx, kafka.MailDeliveryHandler(sender, workerLog)); err != nil {
		workerLog.Error("consumer stopped", "error", err)
		return
	}
	workerLog.Info("worker stopped")
}
