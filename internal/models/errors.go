package models

import "errors"

// Application-wide standard errors
var (
	ErrNotFound                = errors.New("resource not found")
	ErrInvalidStatusTransition = errors.New("generation status cannot leave a terminal state")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this username already exists")
	ErrInvalidInput      = errors.New("invalid input data")

	// Prompt validation
	ErrPromptTooShort = errors.New("prompt is too short")
	ErrPromptTooLong  = errors.New("prompt is too long")
	ErrPromptPolicy   = errors.New("prompt violates content policy")
)

// ErrorKind классифицирует ошибки конвейера генерации.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindGeneration ErrorKind = "generation"
	KindDelivery   ErrorKind = "delivery"
	KindTransport  ErrorKind = "transport"
)

// BotError - типизированная ошибка конвейера. Error() возвращает только
// человекочитаемое описание, оно же сохраняется в ErrorDetail записи.
type BotError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *BotError) Error() string {
	return e.Detail
}

func (e *BotError) Unwrap() error {
	return e.Err
}

// NewValidationError оборачивает одну из ошибок валидации промпта.
func NewValidationError(cause error) *BotError {
	return &BotError{Kind: KindValidation, Detail: cause.Error(), Err: cause}
}

// NewGenerationError - внешний сервис ответил, но изображения в ответе нет.
func NewGenerationError(detail string) *BotError {
	return &BotError{Kind: KindGeneration, Detail: detail}
}

// NewDeliveryError - ошибка ввода-вывода при сохранении или доставке артефакта.
func NewDeliveryError(detail string, cause error) *BotError {
	return &BotError{Kind: KindDelivery, Detail: detail, Err: cause}
}

// NewTransportError - сетевой сбой или ошибка API (Gemini, Telegram).
func NewTransportError(detail string, cause error) *BotError {
	return &BotError{Kind: KindTransport, Detail: detail, Err: cause}
}

// KindOf возвращает вид ошибки или пустую строку, если это не BotError.
func KindOf(err error) ErrorKind {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Kind
	}
	return ""
}
