package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.followup"
	DLXName      = "ex.followup.dlx"

	// DeliveryCheckWaitQueue holds checks until their TTL expires, then
	// dead-letters them into DeliveryCheckQueue.
	DeliveryCheckWaitQueue = "q.delivery_checks.wait"
	DeliveryCheckQueue     = "q.delivery_checks"
	DeliveryCheckDLQ       = "q.delivery_checks.dlq"

	WaitRoutingKey  = "k.delivery_check.wait"
	CheckRoutingKey = "k.delivery_check"
	DeadRoutingKey  = "k.delivery_check.dead"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// NewRabbitMQ dials url and declares the delivery-check topology. delay is
// how long a check waits before a worker sees it.
func NewRabbitMQ(url string, delay time.Duration) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := setupTopology(ch, delay); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel, delay time.Duration) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DeliveryCheckDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DeliveryCheckDLQ, DeadRoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	// rejected checks go to the DLQ
	workArgs := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": DeadRoutingKey,
	}
	if _, err := ch.QueueDeclare(DeliveryCheckQueue, true, false, false, false, workArgs); err != nil {
		return err
	}
	if err := ch.QueueBind(DeliveryCheckQueue, CheckRoutingKey, ExchangeName, false, nil); err != nil {
		return err
	}

	// expired checks are routed back through the main exchange to the work queue
	waitArgs := amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": CheckRoutingKey,
	}
	if _, err := ch.QueueDeclare(DeliveryCheckWaitQueue, true, false, false, false, waitArgs); err != nil {
		return err
	}
	return ch.QueueBind(DeliveryCheckWaitQueue, WaitRoutingKey, ExchangeName, false, nil)
}

// Healthy reports whether the connection is still open.
func (r *RabbitMQ) Healthy() bool {
	return r != nil && r.Conn != nil && !r.Conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}
