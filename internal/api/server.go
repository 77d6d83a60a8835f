// Package api - отладочный HTTP API мира: статистика, чанки, блоки, лучи.
// Все обращения к миру идут через World.Do и выполняются в главном потоке.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/world"
)

// Server - отладочный REST сервер мира
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	world   *world.World
	metrics *ProcessMetrics
	timeout time.Duration
	log     *logging.Logger
}

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Port           string        // адрес для запуска, по умолчанию ":8090"
	ServiceName    string        // имя сервиса для otel и префикс метрик
	World          *world.World  // мир, обслуживаемый сервером
	RequestTimeout time.Duration // сколько ждать кадра мира

	Registerer prometheus.Registerer // nil - prometheus.DefaultRegisterer
	Gatherer   prometheus.Gatherer   // nil - prometheus.DefaultGatherer
	Logger     *logging.Logger
}

// NewServer создает отладочный сервер
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = ":8090"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "voxeld"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	promMw := middleware.NewPrometheusMiddleware(cfg.ServiceName, cfg.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	s := &Server{
		router:  router,
		world:   cfg.World,
		metrics: NewProcessMetrics(),
		timeout: cfg.RequestTimeout,
		log:     cfg.Logger,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/server", s.handleServerInfo)
		api.GET("/registry", s.handleBlockTypes)

		api.GET("/chunks", s.handleChunks)
		api.GET("/chunks/:x/:y", s.handleChunk)

		api.GET("/blocks/:x/:y/:z", s.handleGetBlock)
		api.POST("/blocks", s.handleSetBlock)
		api.POST("/raycast", s.handleRaycast)
	}
}

// Handler возвращает http.Handler сервера (используется в тестах)
func (s *Server) Handler() http.Handler { return s.router }

// Start запускает сервер и блокируется до Stop
func (s *Server) Start() error {
	s.log.Info("🌐 Отладочный API слушает %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

// inWorld выполняет fn в кадре мира с таймаутом запроса.
// При ошибке ответ уже отправлен, и результат fn читать нельзя.
func (s *Server) inWorld(c *gin.Context, fn func(w *world.World)) bool {
	if s.world == nil {
		respondError(c, http.StatusServiceUnavailable, "Мир не подключен")
		return false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()
	if err := s.world.Do(ctx, fn); err != nil {
		s.log.Warn("Запрос %s не дождался кадра мира: %v", c.FullPath(), err)
		respondError(c, http.StatusServiceUnavailable, "Мир не ответил вовремя")
		return false
	}
	return true
}
