//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/messaging"
	"imagegen-bot/internal/models"
)

const eventsQueue = "image_generation_events_test"

type PublisherIntegrationSuite struct {
	suite.Suite
	container *rabbitmq.RabbitMQContainer
	manager   *messaging.ConnectionManager
	publisher *messaging.RabbitMQPublisher
}

func (s *PublisherIntegrationSuite) SetupSuite() {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	url, err := container.AmqpURL(ctx)
	require.NoError(s.T(), err)

	s.manager, err = messaging.NewConnectionManager(ctx, url, zap.NewNop())
	require.NoError(s.T(), err)

	s.publisher, err = messaging.NewRabbitMQPublisher(s.manager, eventsQueue, zap.NewNop())
	require.NoError(s.T(), err)
}

func (s *PublisherIntegrationSuite) TearDownSuite() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.manager != nil {
		_ = s.manager.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PublisherIntegrationSuite) TestPublishDeliversPersistentJSON() {
	ctx := context.Background()
	occurredAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := interfaces.GenerationEvent{
		RecordID:      "0b6c8c1e-6a51-4b7e-9d59-1f4b0f3d2a10",
		RequesterID:   "42",
		Status:        models.GenerationStatusCompleted,
		ImageLocation: "temp/0b6c8c1e-6a51-4b7e-9d59-1f4b0f3d2a10.png",
		OccurredAt:    occurredAt,
	}

	s.Require().NoError(s.publisher.Publish(ctx, event))

	delivery := s.receive(event.RecordID)

	s.Equal("application/json", delivery.ContentType)
	s.Equal(event.RecordID, delivery.CorrelationId)
	s.Equal(amqp.Persistent, delivery.DeliveryMode)

	var got interfaces.GenerationEvent
	s.Require().NoError(json.Unmarshal(delivery.Body, &got))
	s.Equal(event.RecordID, got.RecordID)
	s.Equal(event.Status, got.Status)
	s.Equal(event.ImageLocation, got.ImageLocation)
	s.True(occurredAt.Equal(got.OccurredAt))
}

// receive забирает из очереди сообщение с нужным CorrelationId.
func (s *PublisherIntegrationSuite) receive(recordID string) amqp.Delivery {
	ch, err := s.manager.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	var delivery amqp.Delivery
	s.Require().Eventually(func() bool {
		msg, ok, getErr := ch.Get(eventsQueue, true)
		if getErr != nil || !ok {
			return false
		}
		delivery = msg
		return msg.CorrelationId == recordID
	}, 10*time.Second, 100*time.Millisecond)
	return delivery
}

func (s *PublisherIntegrationSuite) TestPublishRecoversAfterBrokerClosesConnection() {
	ctx := context.Background()

	code, _, err := s.container.Exec(ctx, []string{"rabbitmqctl", "close_all_connections", "integration test"})
	s.Require().NoError(err)
	s.Require().Equal(0, code)

	event := interfaces.GenerationEvent{
		RecordID:    "5f2d9a7e-3c1b-4e8a-b0d4-6a9e2c7f1b33",
		RequesterID: "42",
		Status:      models.GenerationStatusFailed,
		ErrorDetail: "No image data found in Gemini API response",
		OccurredAt:  time.Now().UTC(),
	}
	// Публикация в только что разорванное соединение может пропасть, поэтому
	// повторяем до фактической доставки.
	s.Require().Eventually(func() bool {
		if s.publisher.Publish(ctx, event) != nil {
			return false
		}
		ch, chErr := s.manager.Channel()
		if chErr != nil {
			return false
		}
		defer ch.Close()
		for i := 0; i < 10; i++ {
			msg, ok, getErr := ch.Get(eventsQueue, true)
			if getErr != nil {
				return false
			}
			if ok && msg.CorrelationId == event.RecordID {
				return true
			}
			time.Sleep(100 * time.Millisecond)
		}
		return false
	}, time.Minute, 200*time.Millisecond)
}

func TestPublisherIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PublisherIntegrationSuite))
}
