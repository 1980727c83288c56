package bot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// IncomingMessage - текстовое сообщение, полученное от чат-платформы.
type IncomingMessage struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
}

// Messenger отправляет ответы в чат.
//
//go:generate mockery --name Messenger --output ../mocks --outpkg mocks --case=underscore
type Messenger interface {
	// SendText возвращает id отправленного сообщения.
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendTyping(ctx context.Context, chatID int64) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// ImageGenerator превращает промпт в файл изображения по указанному пути.
//
//go:generate mockery --name ImageGenerator --output ../mocks --outpkg mocks --case=underscore
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, destinationPath string) error
}

// Handler обрабатывает входящие сообщения: команды и запросы на генерацию.
type Handler struct {
	store     interfaces.GenerationStore
	generator ImageGenerator
	messenger Messenger
	publisher interfaces.EventPublisher
	cleanup   *CleanupRegistry
	messages  Messages
	tempDir   string
	now       func() time.Time
	logger    *zap.Logger
}

// NewHandler создает новый экземпляр Handler.
func NewHandler(
	store interfaces.GenerationStore,
	generator ImageGenerator,
	messenger Messenger,
	publisher interfaces.EventPublisher,
	cleanup *CleanupRegistry,
	messages Messages,
	tempDir string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		messenger: messenger,
		publisher: publisher,
		cleanup:   cleanup,
		messages:  messages,
		tempDir:   tempDir,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("BotHandler"),
	}
}

// HandleMessage разбирает сообщение. Возвращенная ошибка означает, что
// пользователю не удалось отправить даже ответ об ошибке.
func (h *Handler) HandleMessage(ctx context.Context, msg IncomingMessage) error {
	if msg.Text == "" {
		return nil
	}
	if strings.HasPrefix(msg.Text, "/") {
		return h.handleCommand(ctx, msg)
	}
	return h.handlePrompt(ctx, msg)
}

// commandName возвращает первое слово без ведущего "/" и суффикса "@botname".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func (h *Handler) handleCommand(ctx context.Context, msg IncomingMessage) error {
	var reply string
	switch commandName(msg.Text) {
	case "start":
		reply = h.messages.Welcome()
	case "help":
		reply = h.messages.Help()
	default:
		h.logger.Debug("Ignoring unknown command", zap.String("text", msg.Text), zap.Int64("chat_id", msg.ChatID))
		return nil
	}
	if _, err := h.messenger.SendText(ctx, msg.ChatID, reply); err != nil {
		return fmt.Errorf("failed to send command reply: %w", err)
	}
	return nil
}

func (h *Handler) handlePrompt(ctx context.Context, msg IncomingMessage) error {
	prompt := msg.Text
	requesterID := strconv.FormatInt(msg.UserID, 10)
	log := h.logger.With(zap.String("requester_id", requesterID), zap.Int64("chat_id", msg.ChatID))

	if err := ValidatePrompt(prompt); err != nil {
		log.Info("Prompt rejected", zap.String("reason", err.Error()))
		generationsTotal.WithLabelValues(outcomeRejected).Inc()
		if _, sendErr := h.messenger.SendText(ctx, msg.ChatID, h.messages.Rejection(err)); sendErr != nil {
			return fmt.Errorf("failed to send rejection reply: %w", sendErr)
		}
		return nil
	}

	if err := h.messenger.SendTyping(ctx, msg.ChatID); err != nil {
		log.Warn("Failed to send typing indicator", zap.Error(err))
	}

	startTime := time.Now()
	path, err := h.generateAndDeliver(ctx, log, msg.ChatID, requesterID, prompt)
	generationDuration.Observe(time.Since(startTime).Seconds())
	if err == nil {
		generationsTotal.WithLabelValues(outcomeCompleted).Inc()
		return nil
	}

	generationsTotal.WithLabelValues(outcomeFailed).Inc()
	return h.handleFailure(ctx, log, msg.ChatID, requesterID, prompt, path, err)
}

// generateAndDeliver создает запись, генерирует изображение и отправляет его.
// Возвращает путь временного файла, если он уже был назначен.
func (h *Handler) generateAndDeliver(ctx context.Context, log *zap.Logger, chatID int64, requesterID, prompt string) (string, error) {
	record, err := h.store.CreateGeneration(ctx, requesterID, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create generation record: %w", err)
	}
	log = log.With(zap.String("record_id", record.ID))
	log.Info("Generation started")

	statusMessageID, err := h.messenger.SendText(ctx, chatID, h.messages.Generating(prompt))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", models.NewDeliveryError(fmt.Sprintf("failed to create temp dir: %v", err), err)
	}
	path := filepath.Join(h.tempDir, record.ID+".png")

	if err := h.generator.Generate(ctx, prompt, path); err != nil {
		return path, err
	}

	if _, err := os.Stat(path); err != nil {
		return path, models.NewDeliveryError("Image generation failed - no file created", err)
	}

	if err := h.messenger.SendPhoto(ctx, chatID, path, h.messages.Success(prompt)); err != nil {
		return path, err
	}

	completedAt := h.now()
	if err := h.store.UpdateGeneration(ctx, record.ID, models.CompletedUpdate(path, completedAt)); err != nil {
		return path, fmt.Errorf("failed to mark generation completed: %w", err)
	}
	h.publish(ctx, log, interfaces.GenerationEvent{
		RecordID:      record.ID,
		RequesterID:   requesterID,
		Status:        models.GenerationStatusCompleted,
		ImageLocation: path,
		OccurredAt:    completedAt,
	})

	h.cleanup.Schedule(path)

	if err := h.messenger.DeleteMessage(ctx, chatID, statusMessageID); err != nil {
		log.Debug("Failed to delete status message", zap.Int("message_id", statusMessageID), zap.Error(err))
	}

	log.Info("Generation completed", zap.String("image_location", path))
	return path, nil
}

// handleFailure отвечает пользователю общим сообщением и помечает запись как failed.
// Ошибки учета только логируются.
func (h *Handler) handleFailure(ctx context.Context, log *zap.Logger, chatID int64, requesterID, prompt, path string, cause error) error {
	log.Error("Image generation failed",
		zap.Error(cause),
		zap.String("kind", string(models.KindOf(cause))),
	)

	_, replyErr := h.messenger.SendText(ctx, chatID, h.messages.GenerationFailed())

	if path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to remove transient file", zap.String("path", path), zap.Error(err))
		}
	}

	record, err := h.store.FindLatestByRequesterAndPrompt(ctx, requesterID, prompt)
	switch {
	case errors.Is(err, models.ErrNotFound):
		log.Warn("No generation record to mark as failed")
	case err != nil:
		bookkeepingErrors.Inc()
		log.Error("Failed to look up generation record", zap.Error(err))
	default:
		failedAt := h.now()
		if err := h.store.UpdateGeneration(ctx, record.ID, models.FailedUpdate(cause.Error(), failedAt)); err != nil {
			bookkeepingErrors.Inc()
			log.Error("Failed to mark generation failed", zap.String("record_id", record.ID), zap.Error(err))
			break
		}
		h.publish(ctx, log, interfaces.GenerationEvent{
			RecordID:    record.ID,
			RequesterID: requesterID,
			Status:      models.GenerationStatusFailed,
			ErrorDetail: cause.Error(),
			OccurredAt:  failedAt,
		})
	}

	if replyErr != nil {
		return fmt.Errorf("failed to send failure reply: %w", replyErr)
	}
	return nil
}

func (h *Handler) publish(ctx context.Context, log *zap.Logger, event interfaces.GenerationEvent) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		bookkeepingErrors.Inc()
		log.Error("Failed to publish generation event", zap.String("status", string(event.Status)), zap.Error(err))
	}
}
