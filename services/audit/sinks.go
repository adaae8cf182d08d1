package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"go.uber.org/zap"
)

// Sink persists or forwards a single audit event
type Sink interface {
	Write(ctx context.Context, log *models.AuditLog) error
}

// RepositorySink writes events to the audit_logs table
type RepositorySink struct {
	repo repositories.AuditRepository
}

// NewRepositorySink creates a sink backed by repo
func NewRepositorySink(repo repositories.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// Write inserts the event
func (s *RepositorySink) Write(ctx context.Context, log *models.AuditLog) error {
	if err := s.repo.Insert(ctx, log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// MultiSink fans an event out to every sink. All sinks are attempted.
type MultiSink []Sink

// Write writes to every sink and joins their errors
func (m MultiSink) Write(ctx context.Context, log *models.AuditLog) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, log); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publisher is the subset of *amqp.Channel the AMQP sink uses
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes events as persistent JSON messages to a durable queue
type AMQPSink struct {
	conn    *amqp.Connection
	channel Publisher
	queue   string
	logger  *zap.Logger
	mu      sync.Mutex
}

// DialAMQPSink connects to the broker and declares queue
func DialAMQPSink(url, queue string, logger *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logger.Info("audit events publishing to amqp", zap.String("queue", queue))

	sink := NewAMQPSink(ch, queue, logger)
	sink.conn = conn
	return sink, nil
}

// NewAMQPSink wraps an already opened channel
func NewAMQPSink(ch Publisher, queue string, logger *zap.Logger) *AMQPSink {
	return &AMQPSink{channel: ch, queue: queue, logger: logger}
}

// Write publishes the event through the default exchange, routed by queue name
func (s *AMQPSink) Write(ctx context.Context, log *models.AuditLog) error {
	body, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    log.ID.String(),
		Type:         string(log.Action),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.channel.PublishWithContext(ctx, "", s.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// Close closes the channel and the connection
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.channel.Close()
	if s.conn != nil {
		err = errors.Join(err, s.conn.Close())
	}
	return err
}
