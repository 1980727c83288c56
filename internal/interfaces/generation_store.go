package interfaces

import (
	"context"

	"imagegen-bot/internal/models"
)

// GenerationStore defines the tracking store for generation records.
// The in-memory and PostgreSQL implementations share this contract.
//
//go:generate mockery --name GenerationStore --output ../mocks --outpkg mocks --case=underscore
type GenerationStore interface {
	// CreateGeneration stores a new pending record and returns a copy of it.
	CreateGeneration(ctx context.Context, requesterID, prompt string) (*models.GenerationRecord, error)

	// UpdateGeneration merges the update into an existing record.
	// Unknown ids are ignored and no record is created.
	// Returns models.ErrInvalidStatusTransition if the record is already terminal
	// and the update tries to change its status.
	UpdateGeneration(ctx context.Context, id string, update models.GenerationUpdate) error

	// GetGeneration returns models.ErrNotFound if the record does not exist.
	GetGeneration(ctx context.Context, id string) (*models.GenerationRecord, error)

	// FindLatestByRequesterAndPrompt returns the most recently created record
	// matching both fields, or models.ErrNotFound.
	FindLatestByRequesterAndPrompt(ctx context.Context, requesterID, prompt string) (*models.GenerationRecord, error)

	// ListRecent returns at most limit records ordered by creation time, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.GenerationRecord, error)

	// ComputeStats aggregates counters over all records.
	ComputeStats(ctx context.Context) (models.BotStats, error)
}

// UserStore - базовые операции с учетными записями.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.UserAccount, error)
	GetUser(ctx context.Context, id string) (*models.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*models.UserAccount, error)
}

// Storage объединяет оба хранилища.
type Storage interface {
	GenerationStore
	UserStore
}
