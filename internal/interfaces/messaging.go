package interfaces

import (
	"context"
	"time"

	"imagegen-bot/internal/models"
)

// GenerationEvent публикуется при переходе записи в конечный статус.
type GenerationEvent struct {
	RecordID      string                  `json:"recordId"`
	RequesterID   string                  `json:"requesterId"`
	Status        models.GenerationStatus `json:"status"`
	ImageLocation string                  `json:"imageLocation,omitempty"`
	ErrorDetail   string                  `json:"errorDetail,omitempty"`
	OccurredAt    time.Time               `json:"occurredAt"`
}

// EventPublisher defines the interface for publishing generation lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event GenerationEvent) error
	Close() error
}

// IdentityProvider запрашивает у чат-платформы данные самого бота.
type IdentityProvider interface {
	GetIdentity(ctx context.Context) (models.BotIdentity, error)
}
