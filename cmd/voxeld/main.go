package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (пусто = VOXEL_CONFIG или значения по умолчанию)")
		fps        = flag.Int("fps", 20, "кадров мира в секунду")
		radius     = flag.Float64("radius", 256, "радиус облёта наблюдателя в блоках (0 = стоять на месте)")
		speed      = flag.Float64("speed", 24, "скорость наблюдателя, блоков в секунду")
		altitude   = flag.Float64("altitude", 100, "высота наблюдателя")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("voxeld"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logging.SetDefaultLevel(level)
	logging.GetWorldLogger().SetLevel(level)

	logging.Info("🧱 Запуск voxeld: seed=%d, хранилище=%s (%s)", cfg.World.Seed, cfg.Storage.Backend, cfg.Storage.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
	}

	// === МИР ===
	registry, err := loadRegistry(cfg.Blocks)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки блоков: %v", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}

	pool := jobs.NewPondPool(cfg.Workers.Count)

	// === СОБЫТИЯ ===
	bus, err := eventbus.Open(cfg.Events)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения шины событий: %v", err)
	}
	var busMetrics *eventbus.MetricsExporter
	if bus != nil {
		if _, err := eventbus.StartLoggingListener(bus, logging.GetComponentLogger("events")); err != nil {
			log.Fatalf("❌ Ошибка подписки на события: %v", err)
		}
		busMetrics = eventbus.NewMetricsExporter(bus, cfg.Telemetry.ServiceName, prometheus.DefaultRegisterer)
		busMetrics.Start(time.Second)
		logging.Info("📨 Шина событий: %s", cfg.Events.Backend)
	}

	w, err := world.New(world.Config{
		Seed:               cfg.World.Seed,
		ActivationRadius:   cfg.World.ActivationRadius,
		DeactivationRadius: cfg.World.DeactivationRadius,
		MaxActiveChunks:    cfg.World.MaxActiveChunks,
	}, world.Options{
		Registry:  registry,
		Templates: block.DefaultTemplates(registry),
		Pool:      pool,
		Store:     store,
		Metrics:   metrics.NewWorld(cfg.Telemetry.ServiceName, prometheus.DefaultRegisterer),
		Events:    bus,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания мира: %v", err)
	}

	// === HTTP ===
	gin.SetMode(gin.ReleaseMode)
	debugAPI := api.NewServer(api.Config{
		Port:        fmt.Sprintf(":%d", cfg.Server.GetDebugPort()),
		ServiceName: cfg.Telemetry.ServiceName,
		World:       w,
	})
	go func() {
		if err := debugAPI.Start(); err != nil {
			logging.Error("❌ Отладочный API остановился: %v", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus метрики на %s/metrics", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик остановился: %v", err)
		}
	}()

	// === ГЛАВНЫЙ ЦИКЛ ===
	path := flightPath{radius: *radius, speed: *speed, altitude: *altitude}
	runFrames(ctx, w, path, *fps)

	// === GRACEFUL SHUTDOWN ===
	logging.Info("📡 Получен сигнал завершения, останавливаем сервисы...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := debugAPI.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки отладочного API: %v", err)
	}
	if err := w.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки мира: %v", err)
	}
	pool.Stop()
	if bus != nil {
		busMetrics.Stop()
		if err := bus.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия шины событий: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 voxeld остановлен")
}

// runFrames крутит кадры мира до отмены ctx. Вызывается из главной горутины:
// только она обращается к миру напрямую.
func runFrames(ctx context.Context, w *world.World, path flightPath, fps int) {
	if fps <= 0 {
		fps = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

	start := time.Now()
	var viewer mgl64.Vec3
	for {
		select {
		case <-ctx.Done():
			return
		case <-report.C:
			s := w.Stats()
			logging.Info("🌍 Кадр %d: активных %d, в очереди %d, сохраняется %d, наблюдатель (%.0f, %.0f)",
				s.Frame, s.Active, s.Queued, s.Saving, viewer.X(), viewer.Y())
		case <-ticker.C:
			viewer = path.At(time.Since(start))
			w.Update(viewer)
		}
	}
}

func loadRegistry(cfg config.BlocksConfig) (*block.Registry, error) {
	if cfg.Definitions == "" {
		return block.DefaultRegistry()
	}
	return block.LoadRegistryFile(cfg.Definitions)
}
