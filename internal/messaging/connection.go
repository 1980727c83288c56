package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	maxConnectAttempts = 5
	reconnectDelay     = 5 * time.Second
)

// Connect подключается к RabbitMQ, повторяя попытки с фиксированной задержкой.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*amqp091.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			logger.Info("RabbitMQ connected successfully", zap.Int("attempt", attempt))
			return conn, nil
		}
		lastErr = err
		logger.Error("Failed to connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == maxConnectAttempts {
			break
		}
		select {
		case <-time.After(reconnectDelay):
			logger.Info("Retrying RabbitMQ connection...")
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connection cancelled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", maxConnectAttempts, lastErr)
}

// ConnectionManager держит соединение с RabbitMQ и переподключается после
// его разрыва (NotifyClose). Каналы открываются на текущем соединении.
type ConnectionManager struct {
	url    string
	logger *zap.Logger

	mu   sync.RWMutex
	conn *amqp091.Connection

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewConnectionManager выполняет первое подключение через Connect и
// запускает наблюдение за соединением. Отмена ctx прерывает только
// первое подключение; фоновую горутину останавливает Close.
func NewConnectionManager(ctx context.Context, url string, logger *zap.Logger) (*ConnectionManager, error) {
	log := logger.Named("RabbitMQConnection")
	conn, err := Connect(ctx, url, log)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m := &ConnectionManager{
		url:     url,
		logger:  log,
		conn:    conn,
		ctx:     watchCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go m.watch()
	return m, nil
}

// Channel открывает канал на текущем соединении.
func (m *ConnectionManager) Channel() (*amqp091.Channel, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq connection is not available")
	}
	return conn.Channel()
}

func (m *ConnectionManager) watch() {
	defer close(m.stopped)
	for {
		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
		select {
		case <-m.ctx.Done():
			return
		case amqpErr := <-closed:
			if m.ctx.Err() != nil {
				return
			}
			if amqpErr != nil {
				m.logger.Warn("RabbitMQ connection closed, reconnecting", zap.Error(amqpErr))
			} else {
				m.logger.Warn("RabbitMQ connection closed, reconnecting")
			}
		}

		for {
			newConn, err := Connect(m.ctx, m.url, m.logger)
			if err == nil {
				m.mu.Lock()
				m.conn = newConn
				m.mu.Unlock()
				break
			}
			if m.ctx.Err() != nil {
				return
			}
		}
	}
}

// Close останавливает переподключение и закрывает соединение.
func (m *ConnectionManager) Close() error {
	m.cancel()
	<-m.stopped

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.IsClosed() {
		m.conn = nil
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}
