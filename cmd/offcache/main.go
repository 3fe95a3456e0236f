package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/offcache"
	zaplog "github.com/unkn0wn-root/offcache/log/zap"
	"github.com/unkn0wn-root/offcache/store/leveldb"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", getenvDefault("OFFCACHE_CONFIG", "/offcache.yaml"), "path to offcache.yaml")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := offcache.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := leveldb.Open(cfg.Cache.Path)
	if err != nil {
		logger.Fatal("open cache store", zap.String("path", cfg.Cache.Path), zap.Error(err))
	}

	p, err := offcache.New(offcache.Options{
		Version:       cfg.Cache.Version,
		Store:         db,
		Fetcher:       offcache.NewHTTPFetcher(cfg.Server.Origin),
		Logger:        zaplog.ZapLogger{L: logger},
		APIPrefixes:   cfg.Cache.APIPrefixes,
		APIHost:       cfg.Cache.APIHost,
		AssetSuffixes: cfg.Cache.AssetSuffixes,
		Precache:      cfg.Cache.Precache,
		RootDocument:  cfg.Cache.RootDocument,
		SweepInterval: cfg.SweepInterval(),
		Retention:     cfg.Retention(),
	})
	if err != nil {
		logger.Fatal("init proxy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		// install failure is non-fatal for the system: without a current
		// generation the proxy passes everything through to the origin
		logger.Warn("proxy start failed, serving pass-through", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("listen", zap.String("addr", addr), zap.Error(err))
	}

	srv := &http.Server{
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("offcache listening",
			zap.String("addr", addr),
			zap.String("origin", cfg.Server.Origin),
			zap.String("version", cfg.Cache.Version))
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := p.Close(shutdownCtx); err != nil {
		logger.Warn("close proxy", zap.Error(err))
	}
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
