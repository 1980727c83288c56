package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// Compile-time check to ensure MemStorage implements Storage
var _ interfaces.Storage = (*MemStorage)(nil)

type memRecord struct {
	seq    uint64
	record *models.GenerationRecord
}

// MemStorage хранит записи о генерациях и пользователей в памяти процесса.
// Записи никогда не удаляются.
type MemStorage struct {
	mu          sync.RWMutex
	generations map[string]*memRecord
	users       map[string]*models.UserAccount
	seq         uint64
	now         func() time.Time
	logger      *zap.Logger
}

// Option настраивает MemStorage.
type Option func(*MemStorage)

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(s *MemStorage) {
		s.now = now
	}
}

// NewMemStorage создает пустое хранилище.
func NewMemStorage(logger *zap.Logger, opts ...Option) *MemStorage {
	s := &MemStorage{
		generations: make(map[string]*memRecord),
		users:       make(map[string]*models.UserAccount),
		now:         time.Now,
		logger:      logger.Named("MemStorage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGeneration создает запись в статусе pending.
func (s *MemStorage) CreateGeneration(_ context.Context, requesterID, prompt string) (*models.GenerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := &models.GenerationRecord{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Prompt:      prompt,
		Status:      models.GenerationStatusPending,
		CreatedAt:   s.now(),
	}
	s.generations[rec.ID] = &memRecord{seq: s.seq, record: rec}

	s.logger.Debug("Generation record created", zap.String("record_id", rec.ID), zap.String("requester_id", requesterID))
	return rec.Clone(), nil
}

// UpdateGeneration сливает изменения в существующую запись. Неизвестный id - no-op.
func (s *MemStorage) UpdateGeneration(_ context.Context, id string, update models.GenerationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.generations[id]
	if !ok {
		s.logger.Debug("Update for unknown generation record ignored", zap.String("record_id", id))
		return nil
	}
	return update.Apply(entry.record)
}

// GetGeneration возвращает копию записи или models.ErrNotFound.
func (s *MemStorage) GetGeneration(_ context.Context, id string) (*models.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.generations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return entry.record.Clone(), nil
}

// FindLatestByRequesterAndPrompt ищет последнюю по порядку создания запись
// с совпадающими requesterID и prompt.
func (s *MemStorage) FindLatestByRequesterAndPrompt(_ context.Context, requesterID, prompt string) (*models.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *memRecord
	for _, entry := range s.generations {
		if entry.record.RequesterID != requesterID || entry.record.Prompt != prompt {
			continue
		}
		if latest == nil || entry.seq > latest.seq {
			latest = entry
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest.record.Clone(), nil
}

// ListRecent возвращает не более limit записей, новые первыми.
func (s *MemStorage) ListRecent(_ context.Context, limit int) ([]*models.GenerationRecord, error) {
	if limit <= 0 {
		return []*models.GenerationRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*memRecord, 0, len(s.generations))
	for _, entry := range s.generations {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].record, entries[j].record
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	result := make([]*models.GenerationRecord, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.record.Clone())
	}
	return result, nil
}

// ComputeStats считает агрегаты по всем записям.
func (s *MemStorage) ComputeStats(_ context.Context) (models.BotStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.BotStats
	users := make(map[string]struct{})
	var totalSeconds float64
	var timed int

	for _, entry := range s.generations {
		rec := entry.record
		stats.TotalGenerations++
		users[rec.RequesterID] = struct{}{}

		switch rec.Status {
		case models.GenerationStatusCompleted:
			stats.SuccessfulGenerations++
			if rec.CompletedAt != nil && !rec.CreatedAt.IsZero() {
				totalSeconds += rec.CompletedAt.Sub(rec.CreatedAt).Seconds()
				timed++
			}
		case models.GenerationStatusFailed:
			stats.FailedGenerations++
		}
	}

	stats.UniqueUsers = len(users)
	if timed > 0 {
		stats.AverageGenerationTimeSeconds = models.RoundSeconds(totalSeconds / float64(timed))
	}
	return stats, nil
}

// CreateUser добавляет пользователя с уникальным username.
func (s *MemStorage) CreateUser(_ context.Context, username, passwordHash string) (*models.UserAccount, error) {
	if username == "" {
		return nil, models.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, models.ErrUserAlreadyExists
		}
	}

	user := &models.UserAccount{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

// GetUser возвращает пользователя по ID или models.ErrUserNotFound.
func (s *MemStorage) GetUser(_ context.Context, id string) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername возвращает пользователя по username или models.ErrUserNotFound.
func (s *MemStorage) GetUserByUsername(_ context.Context, username string) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, models.ErrUserNotFound
}
