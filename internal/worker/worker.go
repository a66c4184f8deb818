package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"taskflow/internal/config"
	"taskflow/internal/email"
	"taskflow/internal/models"
	"taskflow/internal/queue"
	"taskflow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Run starts the Kafka consumer: reads email commands and delivers them
// over SMTP. One consumer per process; scale by running more replicas
// (consumer group shares partitions).
func Run(ctx context.Context) {
	cfg := config.Get()
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info(ctx, "Email worker disabled (no Kafka brokers)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  queue.Brokers(),
		Topic:    queue.Topic(),
		GroupID:  "email-workers",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Email worker started", "topic", queue.Topic())
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Email worker fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Email worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Email worker commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

func handleMessage(ctx context.Context, payload []byte) error {
	var cmd models.EmailCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	switch cmd.Kind {
	case "verification":
		return email.SendVerification(ctx, cmd.To, cmd.Name, cmd.Token)
	default:
		logger.Warn(ctx, "Unknown email command kind", "kind", cmd.Kind)
		return nil
	}
}
