package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config - настройки корневого логгера бота.
type Config struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `env:"LOG_ENCODING" env-default:"json"`
	OutputPath string `env:"LOG_OUTPUT_PATH"` // пусто = stdout
	Name       string `env:"LOG_NAME" env-default:"imagegen-bot"`
}

// New собирает zap.Logger. Компоненты получают дочерние логгеры через
// Named, поэтому поле "logger" в записях имеет вид "imagegen-bot.BotHandler".
// Некорректный уровень не считается ошибкой: логгер работает на info и
// сообщает об этом первой записью.
func New(cfg Config) (*zap.Logger, error) {
	levelName := strings.ToLower(strings.TrimSpace(cfg.Level))
	if levelName == "" {
		levelName = "info"
	}
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	levelErr := level.UnmarshalText([]byte(levelName))

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != EncodingConsole {
		encoding = EncodingJSON
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if encoding == EncodingConsole {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	output := cfg.OutputPath
	if output == "" {
		output = "stdout"
	}

	log, err := zap.Config{
		Level:             level,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Name != "" {
		log = log.Named(cfg.Name)
	}
	if levelErr != nil {
		log.Warn("Invalid log level, falling back to info", zap.String("requested_level", cfg.Level), zap.Error(levelErr))
	}
	return log, nil
}
