package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryChecker resolves one delivery check.
type DeliveryChecker interface {
	CheckDelivery(ctx context.Context, payload DeliveryCheckPayload) error
}

type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Checker DeliveryChecker
	logger  *slog.Logger
}

func NewWorker(ch Consumer, checker DeliveryChecker, logger *slog.Logger) *Worker {
	return &Worker{
		Channel: ch,
		Checker: checker,
		logger:  logger.With(slog.String("component", "delivery_check_worker")),
	}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.logger.Info("worker waiting for messages", slog.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

// Acknowledger is the part of amqp.Delivery the worker settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	w.process(ctx, d.Body, &d)
}

func (w *Worker) process(ctx context.Context, body []byte, ack Acknowledger) {
	var payload DeliveryCheckPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.logger.ErrorContext(ctx, "invalid payload", slog.String("error", err.Error()))
		if err := ack.Nack(false, false); err != nil {
			w.logger.ErrorContext(ctx, "failed to nack message", slog.String("error", err.Error()))
		}
		return
	}

	log := w.logger.With(
		slog.String("check_id", payload.ID),
		slog.Int64("message_id", payload.MessageID),
		slog.Int64("contact_id", payload.ContactID),
	)

	if err := w.Checker.CheckDelivery(ctx, payload); err != nil {
		// no requeue: the message goes to the DLQ for inspection
		log.ErrorContext(ctx, "delivery check failed", slog.String("error", err.Error()))
		if err := ack.Nack(false, false); err != nil {
			log.ErrorContext(ctx, "failed to nack message", slog.String("error", err.Error()))
		}
		return
	}

	log.InfoContext(ctx, "delivery check done")
	if err := ack.Ack(false); err != nil {
		log.ErrorContext(ctx, "failed to ack message", slog.String("error", err.Error()))
	}
}
