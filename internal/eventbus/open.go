package eventbus

import (
	"fmt"
	"time"

	"github.com/annel0/voxel-world/internal/config"
)

// Open создаёт шину по настройкам. Пустой backend означает, что события выключены: (nil, nil).
func Open(cfg config.EventsConfig) (EventBus, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.EventsMemory:
		return NewMemoryBus(cfg.Buffer), nil
	case config.EventsNATS:
		retention := time.Duration(cfg.RetentionHours) * time.Hour
		return NewJetStreamBus(cfg.URL, cfg.Stream, retention)
	default:
		return nil, fmt.Errorf("неизвестный events.backend %q", cfg.Backend)
	}
}
