package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
)

// ChannelOpener открывает AMQP-каналы. Им может быть *amqp091.Connection
// или ConnectionManager.
type ChannelOpener interface {
	Channel() (*amqp091.Channel, error)
}

// RabbitMQPublisher публикует события генерации в durable очередь
// (default exchange, routing key = имя очереди). Закрытый брокером канал
// переоткрывается при следующей публикации.
type RabbitMQPublisher struct {
	opener    ChannelOpener
	ch        *amqp091.Channel
	queueName string
	closed    bool
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewRabbitMQPublisher открывает канал и объявляет очередь событий.
// Соединением владеет вызывающий код.
func NewRabbitMQPublisher(opener ChannelOpener, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if opener == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}

	p := &RabbitMQPublisher{
		opener:    opener,
		queueName: queueName,
		logger:    logger.Named("RabbitMQPublisher"),
	}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	p.logger.Info("Events queue declared", zap.String("queue", queueName))
	return p, nil
}

// openChannel вызывается под p.mu (или до публикации publisher'а).
func (p *RabbitMQPublisher) openChannel() error {
	ch, err := p.opener.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel for publisher: %w", err)
	}

	_, err = ch.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare events queue %s: %w", p.queueName, err)
	}
	p.ch = ch
	return nil
}

// Publish отправляет событие как persistent JSON с CorrelationId = RecordID.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event interfaces.GenerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("publisher is closed")
	}
	if p.ch == nil || p.ch.IsClosed() {
		p.logger.Info("Reopening publisher channel")
		if err := p.openChannel(); err != nil {
			p.ch = nil
			return err
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal generation event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: event.RecordID,
			Body:          body,
			DeliveryMode:  amqp091.Persistent,
			Timestamp:     event.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish generation event: %w", err)
	}

	p.logger.Debug("Generation event published",
		zap.String("record_id", event.RecordID),
		zap.String("status", string(event.Status)),
	)
	return nil
}

// Close закрывает канал. Повторный вызов безопасен.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch == nil || p.ch.IsClosed() {
		p.ch = nil
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

var _ interfaces.EventPublisher = (*RabbitMQPublisher)(nil)

// NoopPublisher используется, когда RABBITMQ_URL не задан.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, interfaces.GenerationEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

var _ interfaces.EventPublisher = NoopPublisher{}

var (
	_ ChannelOpener = (*amqp091.Connection)(nil)
	_ ChannelOpener = (*ConnectionManager)(nil)
)
