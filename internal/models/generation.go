package models

import (
	"math"
	"time"
)

// GenerationStatus описывает стадию жизненного цикла запроса на генерацию.
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// IsTerminal сообщает, является ли статус конечным (completed или failed).
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// GenerationRecord хранит состояние одного запроса на генерацию изображения.
type GenerationRecord struct {
	ID            string           `json:"id" db:"id"`
	RequesterID   string           `json:"requesterId" db:"telegram_user_id"`
	Prompt        string           `json:"prompt" db:"prompt"`
	Status        GenerationStatus `json:"status" db:"status"`
	ImageLocation *string          `json:"imageLocation" db:"image_url"`
	ErrorDetail   *string          `json:"errorDetail" db:"error_message"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	CompletedAt   *time.Time       `json:"completedAt" db:"completed_at"`
}

// Clone возвращает глубокую копию записи, чтобы вызывающий код не мог
// изменить состояние хранилища в обход UpdateGeneration.
func (r *GenerationRecord) Clone() *GenerationRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ImageLocation != nil {
		v := *r.ImageLocation
		c.ImageLocation = &v
	}
	if r.ErrorDetail != nil {
		v := *r.ErrorDetail
		c.ErrorDetail = &v
	}
	if r.CompletedAt != nil {
		v := *r.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

// GenerationUpdate - частичное обновление записи. nil означает "не менять".
type GenerationUpdate struct {
	Status        *GenerationStatus
	ImageLocation *string
	ErrorDetail   *string
	CompletedAt   *time.Time
}

// CompletedUpdate собирает обновление для успешной генерации.
func CompletedUpdate(imageLocation string, at time.Time) GenerationUpdate {
	status := GenerationStatusCompleted
	return GenerationUpdate{
		Status:        &status,
		ImageLocation: &imageLocation,
		CompletedAt:   &at,
	}
}

// FailedUpdate собирает обновление для неудачной генерации.
func FailedUpdate(errorDetail string, at time.Time) GenerationUpdate {
	status := GenerationStatusFailed
	return GenerationUpdate{
		Status:      &status,
		ErrorDetail: &errorDetail,
		CompletedAt: &at,
	}
}

// Apply применяет обновление к записи с учетом одностороннего перехода статуса.
// Запись не меняется, если переход недопустим.
func (u GenerationUpdate) Apply(r *GenerationRecord) error {
	if u.Status != nil && *u.Status != r.Status && r.Status.IsTerminal() {
		return ErrInvalidStatusTransition
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.ImageLocation != nil {
		v := *u.ImageLocation
		r.ImageLocation = &v
	}
	if u.ErrorDetail != nil {
		v := *u.ErrorDetail
		r.ErrorDetail = &v
	}
	if u.CompletedAt != nil {
		v := *u.CompletedAt
		r.CompletedAt = &v
	}
	return nil
}

// BotStats - агрегированная статистика по генерациям.
type BotStats struct {
	TotalGenerations             int     `json:"totalGenerations"`
	SuccessfulGenerations        int     `json:"successfulGenerations"`
	FailedGenerations            int     `json:"failedGenerations"`
	UniqueUsers                  int     `json:"uniqueUsers"`
	AverageGenerationTimeSeconds float64 `json:"averageGenerationTimeSeconds"`
}

// RoundSeconds округляет значение до двух знаков после запятой.
func RoundSeconds(v float64) float64 {
	return math.Round(v*100) / 100
}
