package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/controller"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/metrics"
	"github.com/sharetube/jam/internal/repository/connection/inmemory"
	likesrepo "github.com/sharetube/jam/internal/repository/likes/redis"
	wssender "github.com/sharetube/jam/internal/repository/ws-sender"
	"github.com/sharetube/jam/internal/service/likes"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/ctxlogger"
	"github.com/sharetube/jam/pkg/redisclient"
	"github.com/sharetube/jam/pkg/trackinfo"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
	lookupTimeout  = 3 * time.Second
)

type AppConfig struct {
	Host                    string        `json:"host"`
	Port                    int           `json:"port"`
	LogLevel                string        `json:"log_level"`
	QueueLimit              int           `json:"queue_limit"`
	RoomIdleTTL             time.Duration `json:"room_idle_ttl"`
	PlayLagTolerance        float64       `json:"play_lag_tolerance"`
	HeartbeatDeadband       float64       `json:"heartbeat_deadband"`
	HeartbeatRogueThreshold float64       `json:"heartbeat_rogue_threshold"`
	TrackLookupURL          string        `json:"track_lookup_url"`
	RedisHost               string        `json:"redis_host"`
	RedisPort               int           `json:"redis_port"`
	RedisPassword           string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if cfg.QueueLimit < 0 {
		return fmt.Errorf("queue limit must not be negative")
	}
	if cfg.RoomIdleTTL < 0 {
		return fmt.Errorf("room idle ttl must not be negative")
	}
	if cfg.PlayLagTolerance < 0 || cfg.HeartbeatDeadband < 0 || cfg.HeartbeatRogueThreshold < 0 {
		return fmt.Errorf("sync thresholds must not be negative")
	}
	if cfg.HeartbeatRogueThreshold > 0 && cfg.HeartbeatRogueThreshold <= cfg.HeartbeatDeadband {
		return fmt.Errorf("heartbeat rogue threshold must exceed the deadband")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

type iLikesService interface {
	ToggleLike(context.Context, *likes.ToggleLikeParams) ([]domain.Track, error)
	GetLikes(context.Context, string) ([]domain.Track, error)
}

type iTrackResolver interface {
	Lookup(ctx context.Context, trackID string) (*trackinfo.Info, error)
}

// deps are the optional backends. Nil fields disable the features built on them.
type deps struct {
	redis    *redis.Client
	resolver *trackinfo.Client
}

type app struct {
	handler     http.Handler
	roomService interface{ EvictIdleRooms(context.Context) int }
	idleTTL     time.Duration
	logger      *slog.Logger
}

func build(cfg *AppConfig, d deps, logger *slog.Logger) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	connectionRepo := inmemory.NewRepo(logger)
	sender := wssender.NewRepo(sendBufferSize, writeTimeout, m, logger)
	roomService := room.NewService(connectionRepo, m, &room.Config{
		PlayLagTolerance:        cfg.PlayLagTolerance,
		HeartbeatDeadband:       cfg.HeartbeatDeadband,
		HeartbeatRogueThreshold: cfg.HeartbeatRogueThreshold,
		QueueLimit:              cfg.QueueLimit,
		RoomIdleTTL:             cfg.RoomIdleTTL,
	}, logger)

	ctrlCfg := controller.Config{
		LookupTimeout:  lookupTimeout,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}

	// left as nil interfaces when the backend is disabled
	var likesService iLikesService
	if d.redis != nil {
		likesService = likes.NewService(likesrepo.NewRepo(d.redis, logger), logger)
	}
	var resolver iTrackResolver
	if d.resolver != nil {
		resolver = d.resolver
	}

	c := controller.NewController(roomService, likesService, resolver, sender, ctrlCfg, logger)

	return &app{
		handler:     c.GetMux(),
		roomService: roomService,
		idleTTL:     cfg.RoomIdleTTL,
		logger:      logger,
	}
}

// runJanitor evicts idle rooms until ctx is done.
func (a *app) runJanitor(ctx context.Context) {
	if a.idleTTL <= 0 {
		return
	}

	interval := a.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.roomService.EvictIdleRooms(ctx); n > 0 {
				a.logger.InfoContext(ctx, "evicted idle rooms", "count", n)
			}
		}
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel, _ := parseLevel(cfg.LogLevel)
	logger := newLogger(os.Stdout, logLevel)

	var d deps
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		d.redis = rc
	} else {
		logger.InfoContext(ctx, "redis host is empty, likes are disabled")
	}

	if cfg.TrackLookupURL != "" {
		trackCfg := trackinfo.DefaultConfig()
		trackCfg.OEmbedURL = cfg.TrackLookupURL
		d.resolver = trackinfo.New(trackCfg)
	} else {
		logger.InfoContext(ctx, "track lookup url is empty, track lookup is disabled")
	}

	a := build(cfg, d, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: a.handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	go a.runJanitor(serverCtx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case <-sig:
		case <-serverCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
