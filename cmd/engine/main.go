package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lintang-b-s/mwmrouter/docs"
	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/config"
	"github.com/lintang-b-s/mwmrouter/pkg/engine/routing"
	"github.com/lintang-b-s/mwmrouter/pkg/kv"
	"github.com/lintang-b-s/mwmrouter/pkg/logger"
	"github.com/lintang-b-s/mwmrouter/pkg/metrics"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/server/rest"
	"github.com/lintang-b-s/mwmrouter/pkg/server/rest/service"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	configFile = flag.String("config", "", "yaml config file, defaults are used when empty")
	listenAddr = flag.String("listenaddr", "", "server listen address, overrides server.listen_addr")
)

//	@title			mwmrouter API
//	@version		1.0
//	@description	offline routing over independently downloaded map regions

//	@contact.name	lintang birda saputra

//	@license.name	GNU Affero General Public License v3.0
//	@license.url	https://www.gnu.org/licenses/gpl-3.0.en.html

// @host		localhost:5000
// @BasePath	/api
// @schemes	http
func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("engine stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	opts := []worldgraph.Option{worldgraph.WithMetrics(m), worldgraph.WithLogger(lg)}
	if cfg.WorldIndex != "" {
		index, err := kv.Open(cfg.WorldIndex, lg)
		if err != nil {
			return err
		}
		defer index.Close()
		opts = append(opts, worldgraph.WithWorldIndex(index))
	}

	world := worldgraph.New(worldgraph.Config{
		SnapRadiusM:       cfg.Router.SnapRadiusM,
		AttachToleranceM:  cfg.Router.AttachToleranceM,
		MaxRoadCandidates: cfg.Router.MaxRoadCandidates,
		ResidentLimit:     cfg.Router.ResidentLimit,
	}, catalog.NewCatalog(), mwm.NewDirSource(cfg.DataDir), opts...)
	if err := world.Bootstrap(ctx); err != nil {
		return err
	}

	router := routing.NewRouter(world, routing.Config{
		LongRouteThresholdM: cfg.Router.LongRouteThresholdM,
		RefineTolerance:     cfg.Router.RefineTolerance,
	}, routing.WithMetrics(m), routing.WithLogger(lg))

	navigatorSvc, err := service.NewNavigationService(router, service.Config{
		Workers:        cfg.Service.Workers,
		CacheSize:      cfg.Service.CacheSize,
		CoordPrecision: cfg.Service.CoordPrecision,
	}, lg)
	if err != nil {
		return err
	}
	regionSvc := service.NewRegionService(world, navigatorSvc, lg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rest.PromeHttpMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.SwaggerURL),
	))

	rest.NavigatorRouter(r, navigatorSvc, regionSvc)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server started", zap.String("addr", cfg.Server.ListenAddr), zap.Int("regions", len(world.Regions())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
