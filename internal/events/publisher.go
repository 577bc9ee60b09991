package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys published on the events exchange.
const (
	AccountRegistered = "account.registered"
	AccountActivated  = "account.activated"
	TransferCompleted = "transfer.completed"
)

// Publisher is the interface implemented by event publishers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// AccountEvent is the payload for account lifecycle events.
type AccountEvent struct {
	AccountID string    `json:"accountId"`
	Status    string    `json:"status"`
	Balance   int64     `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferEvent is the payload for transfer.completed.
type TransferEvent struct {
	TransactionID string    `json:"transactionId"`
	SenderID      string    `json:"senderId"`
	ReceiverID    string    `json:"receiverId"`
	Amount        int64     `json:"amount"`
	Fee           int64     `json:"fee"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventProducer publishes JSON messages to a durable topic exchange.
type EventProducer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string

	mu       sync.Mutex
	declared bool
}

// EventProducerFallback is a no-op publisher used when RabbitMQ is unavailable.
type EventProducerFallback struct{}

func NewFallbackPublisher() *EventProducerFallback {
	return &EventProducerFallback{}
}

func (p *EventProducerFallback) Publish(ctx context.Context, routingKey string, body any) error {
	log.Printf("[MQ-FALLBACK] Would publish routingKey='%s' body=%+v", routingKey, body)
	return nil
}

func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and opens a channel.
func NewEventProducer(amqpURL, exchange string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, exchange: exchange}, nil
}

// NewPublisher returns a RabbitMQ producer, or the logging fallback when the
// URL is empty or the broker cannot be reached.
func NewPublisher(amqpURL, exchange string) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		log.Printf("[MQ] RABBITMQ_URL not set, events will only be logged")
		return NewFallbackPublisher()
	}

	producer, err := NewEventProducer(amqpURL, exchange)
	if err != nil {
		log.Printf("[MQ] RabbitMQ unavailable, events will only be logged: %v", err)
		return NewFallbackPublisher()
	}

	log.Printf("[MQ] Connected to RabbitMQ, exchange=%s", exchange)
	return producer
}

func (p *EventProducer) declareExchange() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared {
		return nil
	}
	if err := p.channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}
	p.declared = true
	return nil
}

// Publish sends body as JSON with the given routing key.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body any) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel not initialized")
	}

	if err := p.declareExchange(); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         payload,
		Timestamp:    time.Now(),
	})
}

// Close closes the RabbitMQ connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
