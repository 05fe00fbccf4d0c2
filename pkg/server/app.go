package server

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"FeatCast/internal/handler/api"
	icache "FeatCast/internal/service/cache"
	"FeatCast/internal/usecase"
	pkgcache "FeatCast/pkg/cache"
	pkgch "FeatCast/pkg/clickhouse"
	"FeatCast/pkg/config"
	xhttp "FeatCast/pkg/http"
	httpmid "FeatCast/pkg/http/middleware"
	pkgkafka "FeatCast/pkg/kafka"
	applogger "FeatCast/pkg/logger"
	"FeatCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.TickCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	TickProc    *usecase.TickProcessor

	features *usecase.FeaturesUseCase
	bars     *usecase.BarsUseCase

	recomputeQ *queue.RedisQueue
	logger     *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetFeatures injects the feature engine use cases.
func (a *App) SetFeatures(features *usecase.FeaturesUseCase, bars *usecase.BarsUseCase) {
	a.features = features
	a.bars = bars
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	a.logger = l

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.features != nil && a.bars != nil {
		a.features.SetLogger(l)
		httpHandler = api.NewFeaturesEchoHandler(l, a.features, a.bars)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Cached polling surface for dashboards, backed by Redis when available.
	if a.features != nil {
		fh := api.NewFeaturesHandler(a.features)
		fh.SetLogger(l)
		if a.cfg.Features.Redis.Enabled {
			host, port := splitHostPort(a.cfg.Features.Redis.Addr)
			rc, err := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(host),
				pkgcache.WithRedisPort(port),
				pkgcache.WithRedisPassword(a.cfg.Features.Redis.Password),
				pkgcache.WithRedisDB(a.cfg.Features.Redis.DB),
			)
			if err != nil {
				l.Warn("features redis connect error, using in-process cache", applogger.Error(err))
				fh.SetCache(icache.NewTTLCache())
			} else {
				layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(4096))
				fh.SetCache(icache.NewServiceCache(layered, "features"))
			}
		} else {
			fh.SetCache(icache.NewTTLCache())
		}
		slow := 500 * time.Millisecond
		e := a.httpServer.Echo()
		e.GET("/api/cached/features", echo.WrapHandler(httpmid.Metrics(l, slow)(fh.Features())))
		e.GET("/api/cached/series", echo.WrapHandler(httpmid.Metrics(l, slow)(fh.Series())))
	}

	// Start collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start scheduled feature recomputes if configured
	a.startRecomputes(ctx, l)

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startRecomputes wires the Redis recompute queue and a ticker that enqueues
// warmup jobs for the configured symbols.
func (a *App) startRecomputes(ctx context.Context, l *applogger.Logger) {
	rc := a.cfg.Features.Recompute
	if !rc.Enabled || !a.cfg.Features.Redis.Enabled || a.features == nil {
		return
	}

	host, port := splitHostPort(a.cfg.Features.Redis.Addr)
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(a.cfg.Features.Redis.Password),
		pkgcache.WithRedisDB(a.cfg.Features.Redis.DB),
	)
	if err != nil {
		l.Error("recompute redis connect error", applogger.Error(err))
		return
	}
	job := usecase.NewRecomputeJob(a.features)
	a.recomputeQ = queue.NewRedisQueue(l, &queue.QueueConfig{Workers: 2, QueueSize: 256}, redisCache.Client(), queue.ModeProducerConsumer)
	a.recomputeQ.RegisterJob(job)
	if err := a.recomputeQ.Start(); err != nil {
		l.Error("recompute queue start error", applogger.Error(err))
		return
	}

	// ship aggregated error logs through the same queue
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      a.recomputeQ,
	})

	interval := rc.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, sym := range rc.Symbols {
					p := usecase.RecomputePayload{Symbol: sym, Bars: rc.Bars, TF: rc.TF}
					if err := a.recomputeQ.Enqueue(ctx, job.Type(), p); err != nil {
						l.Warn("recompute enqueue error",
							applogger.String("symbol", sym), applogger.Error(err))
					}
				}
			}
		}
	}()
	l.Info("recompute scheduler started",
		applogger.Strings("symbols", rc.Symbols),
		applogger.Duration("interval", interval))
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// flush aggregated logs before the queue that ships them goes away
	l.RemoveCollector()

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Stop recompute queue
	if a.recomputeQ != nil {
		if err := a.recomputeQ.Stop(ctx); err != nil {
			l.Warn("recompute queue stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close tick processor resources (publisher/storage)
	if a.TickProc != nil {
		a.TickProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
