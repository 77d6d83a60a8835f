// Package storage содержит постоянные хранилища чанков для world.ChunkStore.
package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/world"
)

// ErrNotFound - для координат нет сохранённого чанка
var ErrNotFound = errors.New("чанк не найден в хранилище")

// errNotReady - хранилище уже закрыто
var errNotReady = errors.New("хранилище не готово")

// Store - хранилище чанков, которое нужно закрыть при остановке
type Store interface {
	world.ChunkStore
	io.Closer
}

// Open открывает хранилище по настройкам
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Path)
	case config.BackendBadger:
		return OpenBadgerStore(cfg.Path, cfg.Compress)
	case config.BackendRedis:
		return OpenRedisStore(cfg.Path, cfg.Compress)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.Backend)
	}
}
