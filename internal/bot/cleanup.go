package bot

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

type cleanupEntry struct {
	id    uint64
	timer *time.Timer
}

// CleanupRegistry удаляет временные файлы с задержкой и отслеживает все
// взведенные таймеры, чтобы Shutdown мог завершить их сразу.
type CleanupRegistry struct {
	mu      sync.Mutex
	delay   time.Duration
	entries map[string]cleanupEntry
	nextID  uint64
	closed  bool
	logger  *zap.Logger
}

func NewCleanupRegistry(delay time.Duration, logger *zap.Logger) *CleanupRegistry {
	return &CleanupRegistry{
		delay:   delay,
		entries: make(map[string]cleanupEntry),
		logger:  logger.Named("CleanupRegistry"),
	}
}

// Schedule удаляет файл через заданную задержку. Повторный вызов для того же
// пути заменяет таймер. После Shutdown файл удаляется сразу.
func (r *CleanupRegistry) Schedule(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.remove(path)
		return
	}

	if prev, ok := r.entries[path]; ok {
		prev.timer.Stop()
	}

	r.nextID++
	id := r.nextID
	r.entries[path] = cleanupEntry{
		id:    id,
		timer: time.AfterFunc(r.delay, func() { r.fire(path, id) }),
	}
	r.logger.Debug("Cleanup scheduled", zap.String("path", path), zap.Duration("delay", r.delay))
}

func (r *CleanupRegistry) fire(path string, id uint64) {
	r.mu.Lock()
	entry, ok := r.entries[path]
	if !ok || entry.id != id {
		// Таймер заменен или снят через Shutdown
		r.mu.Unlock()
		return
	}
	delete(r.entries, path)
	r.mu.Unlock()

	r.remove(path)
}

// Pending возвращает число взведенных таймеров.
func (r *CleanupRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Shutdown останавливает все таймеры и удаляет их файлы немедленно.
func (r *CleanupRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for path, entry := range r.entries {
		entry.timer.Stop()
		r.remove(path)
		delete(r.entries, path)
	}
	r.logger.Info("Cleanup registry flushed")
}

func (r *CleanupRegistry) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("Failed to remove transient file", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Debug("Transient file removed", zap.String("path", path))
}
