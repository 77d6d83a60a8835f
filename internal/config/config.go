package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Workers   WorkersConfig   `yaml:"workers"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Blocks    BlocksConfig    `yaml:"blocks"`
	Logging   LoggingConfig   `yaml:"logging"`
	Events    EventsConfig    `yaml:"events"`
}

// WorldConfig параметры стриминга чанков
type WorldConfig struct {
	Seed               uint32 `yaml:"seed"`
	ActivationRadius   int    `yaml:"activation_radius"`   // в чанках
	DeactivationRadius int    `yaml:"deactivation_radius"` // в чанках, строго больше activation_radius
	MaxActiveChunks    int    `yaml:"max_active_chunks"`
}

// StorageConfig выбор и параметры хранилища чанков
type StorageConfig struct {
	Backend  string `yaml:"backend"` // file | badger | redis
	Path     string `yaml:"path"`    // каталог для file/badger, redis://… для redis
	Compress bool   `yaml:"compress"` // zstd, для badger и redis
}

type WorkersConfig struct {
	Count int `yaml:"count"` // 0 = runtime.NumCPU()
}

type ServerConfig struct {
	DebugPort   int `yaml:"debug_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`     // host:port OTLP/HTTP, пусто = localhost:4318
	SampleRatio float64 `yaml:"sample_ratio"` // 0 = всегда
}

type BlocksConfig struct {
	Definitions string `yaml:"definitions"` // пусто = встроенный набор
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// EventsConfig шина событий мира. Пустой backend выключает события.
type EventsConfig struct {
	Backend        string `yaml:"backend"` // "" | memory | nats
	Buffer         int    `yaml:"buffer"`  // для memory
	URL            string `yaml:"url"`     // для nats
	Stream         string `yaml:"stream"`
	RetentionHours int    `yaml:"retention_hours"`
}

const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"

	EventsMemory = "memory"
	EventsNATS   = "nats"
)

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:               1337,
			ActivationRadius:   6,
			DeactivationRadius: 8,
			MaxActiveChunks:    256,
		},
		Storage: StorageConfig{
			Backend:  BackendFile,
			Path:     "data/chunks",
			Compress: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxeld",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
		Events: EventsConfig{
			Backend:        EventsMemory,
			Buffer:         1024,
			Stream:         "VOXEL",
			RetentionHours: 24,
		},
	}
}

// GetDebugPort возвращает порт отладочного HTTP API
func (s *ServerConfig) GetDebugPort() int {
	return getPortWithEnvFallback(s.DebugPort, "VOXEL_DEBUG_PORT", 8090)
}

// GetMetricsPort возвращает Prometheus порт
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет согласованность параметров. Ошибка здесь фатальна для старта.
func (c *Config) Validate() error {
	w := c.World
	if w.ActivationRadius <= 0 {
		return fmt.Errorf("world.activation_radius должен быть > 0, получено %d", w.ActivationRadius)
	}
	if w.DeactivationRadius <= w.ActivationRadius {
		return fmt.Errorf("world.deactivation_radius (%d) должен быть больше activation_radius (%d)",
			w.DeactivationRadius, w.ActivationRadius)
	}
	if w.MaxActiveChunks <= 0 {
		return fmt.Errorf("world.max_active_chunks должен быть > 0, получено %d", w.MaxActiveChunks)
	}

	switch c.Storage.Backend {
	case BackendFile, BackendBadger, BackendRedis:
	default:
		return fmt.Errorf("неизвестный storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path не задан")
	}
	switch c.Events.Backend {
	case "", EventsMemory:
	case EventsNATS:
		if c.Events.URL == "" {
			return fmt.Errorf("events.url не задан для backend nats")
		}
	default:
		return fmt.Errorf("неизвестный events.backend %q", c.Events.Backend)
	}
	if c.Workers.Count < 0 {
		return fmt.Errorf("workers.count не может быть отрицательным")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
		}
	}

	if seed := os.Getenv("VOXEL_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("некорректный VOXEL_SEED %q: %w", seed, err)
		}
		cfg.World.Seed = uint32(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
