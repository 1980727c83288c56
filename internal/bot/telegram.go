package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"imagegen-bot/internal/models"
)

// NewBotAPI подключается к Bot API и проверяет токен вызовом getMe.
// Пустой endpoint означает стандартный tgbotapi.APIEndpoint.
func NewBotAPI(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram bot api: %w", redactToken(err, token))
	}
	api.Debug = debug
	return api, nil
}

// TelegramMessenger реализует Messenger и IdentityProvider поверх tgbotapi.
type TelegramMessenger struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramMessenger(api *tgbotapi.BotAPI, logger *zap.Logger) *TelegramMessenger {
	return &TelegramMessenger{api: api, logger: logger.Named("TelegramMessenger")}
}

const redactedToken = "[REDACTED]"

// tokenRedactedError скрывает токен в тексте. Unwrap отдает только сетевую
// причину из *url.Error, в которой URL запроса уже нет.
type tokenRedactedError struct {
	msg   string
	cause error
}

func (e *tokenRedactedError) Error() string { return e.msg }

func (e *tokenRedactedError) Unwrap() error { return e.cause }

// redactToken убирает токен бота из ошибки: tgbotapi кладет в *url.Error
// полный URL запроса вида .../bot<token>/method.
func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	redacted := &tokenRedactedError{msg: strings.ReplaceAll(msg, token, redactedToken)}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !strings.Contains(urlErr.Err.Error(), token) {
		redacted.cause = urlErr.Err
	}
	return redacted
}

func (m *TelegramMessenger) redact(err error) error {
	return redactToken(err, m.api.Token)
}

// BotLogger пишет внутренние сообщения tgbotapi в zap без токена бота.
type BotLogger struct {
	log   *zap.SugaredLogger
	token string
}

func NewBotLogger(token string, logger *zap.Logger) *BotLogger {
	return &BotLogger{log: logger.Named("tgbotapi").Sugar(), token: token}
}

func (l *BotLogger) Println(v ...interface{}) {
	l.log.Info(l.scrub(strings.TrimSuffix(fmt.Sprintln(v...), "\n")))
}

func (l *BotLogger) Printf(format string, v ...interface{}) {
	l.log.Info(l.scrub(fmt.Sprintf(format, v...)))
}

func (l *BotLogger) scrub(s string) string {
	if l.token == "" {
		return s
	}
	return strings.ReplaceAll(s, l.token, redactedToken)
}

var _ tgbotapi.BotLogger = (*BotLogger)(nil)

func (m *TelegramMessenger) SendText(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := m.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		err = m.redact(err)
		return 0, models.NewTransportError(fmt.Sprintf("failed to send message: %v", err), err)
	}
	return sent.MessageID, nil
}

func (m *TelegramMessenger) SendTyping(_ context.Context, chatID int64) error {
	if _, err := m.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		err = m.redact(err)
		return models.NewTransportError(fmt.Sprintf("failed to send chat action: %v", err), err)
	}
	return nil
}

func (m *TelegramMessenger) SendPhoto(_ context.Context, chatID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := m.api.Send(photo); err != nil {
		err = m.redact(err)
		return models.NewDeliveryError(fmt.Sprintf("failed to send photo: %v", err), err)
	}
	return nil
}

func (m *TelegramMessenger) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		err = m.redact(err)
		return models.NewTransportError(fmt.Sprintf("failed to delete message: %v", err), err)
	}
	return nil
}

// GetIdentity каждый раз делает живой запрос getMe.
func (m *TelegramMessenger) GetIdentity(_ context.Context) (models.BotIdentity, error) {
	me, err := m.api.GetMe()
	if err != nil {
		err = m.redact(err)
		return models.BotIdentity{}, models.NewTransportError(err.Error(), err)
	}
	return models.BotIdentity{
		ID:        me.ID,
		Username:  me.UserName,
		FirstName: me.FirstName,
	}, nil
}

// ToIncomingMessage извлекает текстовое сообщение из обновления.
func ToIncomingMessage(update tgbotapi.Update) (IncomingMessage, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return IncomingMessage{}, false
	}
	return IncomingMessage{
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}, true
}

// UpdateSource - часть *tgbotapi.BotAPI, отвечающая за long polling.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// MessageHandler обрабатывает одно входящее сообщение.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg IncomingMessage) error
}

// Poller читает обновления и запускает обработчик в отдельной горутине на
// каждое сообщение. Паника или ошибка обработчика логируется, пользователь
// получает извинение, процесс продолжает работу.
type Poller struct {
	source    UpdateSource
	handler   MessageHandler
	messenger Messenger
	messages  Messages
	timeout   int
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func NewPoller(source UpdateSource, handler MessageHandler, messenger Messenger, messages Messages, pollTimeout int, logger *zap.Logger) *Poller {
	return &Poller{
		source:    source,
		handler:   handler,
		messenger: messenger,
		messages:  messages,
		timeout:   pollTimeout,
		logger:    logger.Named("Poller"),
	}
}

// Run блокируется до отмены ctx (или закрытия канала обновлений) и
// завершения всех запущенных обработчиков.
func (p *Poller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.source.GetUpdatesChan(u)
	p.logger.Info("Telegram polling started", zap.Int("timeout", p.timeout))

	defer func() {
		p.logger.Info("Waiting for in-flight handlers to finish...")
		p.wg.Wait()
		p.logger.Info("Telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := ToIncomingMessage(update)
			if !ok {
				continue
			}
			p.dispatch(ctx, msg)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, msg IncomingMessage) {
	// Начатая генерация доводится до конца даже при остановке
	hctx := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic in message handler",
					zap.Any("panic", r),
					zap.Int64("chat_id", msg.ChatID),
					zap.Stack("stack"),
				)
				p.apologize(hctx, msg.ChatID)
			}
		}()

		if err := p.handler.HandleMessage(hctx, msg); err != nil {
			p.logger.Error("Message handler failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
			p.apologize(hctx, msg.ChatID)
		}
	}()
}

func (p *Poller) apologize(ctx context.Context, chatID int64) {
	if _, err := p.messenger.SendText(ctx, chatID, p.messages.Apology()); err != nil {
		p.logger.Error("Failed to send apology", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
