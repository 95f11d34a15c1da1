package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
)

// DefaultExchange receives interview summaries when none is configured.
const DefaultExchange = "interview.analytics"

// Publisher ships summaries to downstream analytics.
type Publisher interface {
	Publish(ctx context.Context, summary Summary) error
	Close() error
}

// AMQPPublisher publishes summaries to a fanout exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher connects to RabbitMQ and declares the exchange.
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends one summary as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, summary Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		p.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    summary.ConnectionID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish summary %s: %w", summary.ConnectionID, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher writes summaries to the log when no broker is configured.
type LogPublisher struct{}

var _ Publisher = LogPublisher{}

// Publish logs the summary.
func (LogPublisher) Publish(_ context.Context, summary Summary) error {
	logging.For("analytics").WithFields(logrus.Fields{
		"connection": summary.ConnectionID,
		"questions":  summary.Questions,
		"answered":   summary.Answered,
		"duration":   summary.DurationSeconds,
		"status":     summary.Status,
	}).Info("interview summary")
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
