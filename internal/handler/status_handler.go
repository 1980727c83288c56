package handler

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
)

const (
	recentGenerationsLimit = 10
	// RFC 3339 с миллисекундами, всегда UTC
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// StatusConfig - статические параметры HTTP поверхности.
type StatusConfig struct {
	TeamName        string
	TeamAttribution string
	StaticDir       string
}

// StatusHandler отдает статистику, последние генерации и состояние бота.
type StatusHandler struct {
	store    interfaces.GenerationStore
	identity interfaces.IdentityProvider
	cfg      StatusConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewStatusHandler(store interfaces.GenerationStore, identity interfaces.IdentityProvider, cfg StatusConfig, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		store:    store,
		identity: identity,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("StatusHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. /metrics подключается отдельно.
func (h *StatusHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.root)
	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.GET("/bot-stats", h.botStats)
		api.GET("/recent-generations", h.recentGenerations)
		api.GET("/bot-health", h.botHealth)
	}

	router.NoRoute(h.static)
}

func (h *StatusHandler) timestamp() string {
	return h.now().UTC().Format(timestampLayout)
}

func (h *StatusHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"message":   "AI Image Generator Bot is running",
		"timestamp": h.timestamp(),
		"team":      h.cfg.TeamName,
	})
}

func (h *StatusHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StatusHandler) botStats(c *gin.Context) {
	stats, err := h.store.ComputeStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Error fetching bot stats", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bot statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatusHandler) recentGenerations(c *gin.Context) {
	records, err := h.store.ListRecent(c.Request.Context(), recentGenerationsLimit)
	if err != nil {
		h.logger.Error("Error fetching recent generations", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent generations"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *StatusHandler) botHealth(c *gin.Context) {
	identity, err := h.identity.GetIdentity(c.Request.Context())
	if err != nil {
		h.logger.Warn("Bot health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": h.timestamp(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"botInfo":   identity,
		"timestamp": h.timestamp(),
	})
}

// static отдает файлы фронтенда, index.html для остальных путей или
// встроенную страницу, если сборки нет.
func (h *StatusHandler) static(c *gin.Context) {
	reqPath := c.Request.URL.Path
	if strings.HasPrefix(reqPath, "/api/") || reqPath == "/api" ||
		(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.cfg.StaticDir != "" {
		file := filepath.Join(h.cfg.StaticDir, filepath.FromSlash(path.Clean("/"+reqPath)))
		if isRegularFile(file) {
			c.File(file)
			return
		}
		index := filepath.Join(h.cfg.StaticDir, "index.html")
		if isRegularFile(index) {
			c.File(index)
			return
		}
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.fallbackPage()))
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (h *StatusHandler) fallbackPage() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <title>AI Image Generator Bot</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body>
    <div style="display: flex; justify-content: center; align-items: center; height: 100vh; font-family: Arial, sans-serif;">
      <div style="text-align: center;">
        <h1>🎨 AI Image Generator Bot</h1>
        <p>The bot is running successfully!</p>
        <p><strong>%s</strong></p>
        <p>Use the bot on Telegram to generate AI images.</p>
      </div>
    </div>
  </body>
</html>
`, html.EscapeString(h.cfg.TeamAttribution))
}
