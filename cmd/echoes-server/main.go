package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/api"
	"github.com/echoesrpg/echoes-server/lib/config"
	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/service"
	"github.com/echoesrpg/echoes-server/lib/store"
)

var (
	configPath = flag.String("config", "", "Path to server configuration file")
	listenAddr = flag.String("addr", "", "Listen address override")
	contentDir = flag.String("content", "", "Content directory override")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	version    = flag.Bool("version", false, "Show version information")
)

const appVersion = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("echoes-server v%s\n", appVersion)
		return
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	applyOverrides(cfg)

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	if *debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	catalog, err := content.LoadCatalog(cfg.ContentDir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load content catalog")
	}

	st, closeStore, err := openStore(cfg, catalog)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open session store")
	}
	defer closeStore()

	svc := service.New(st)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(svc).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("Combat server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

func applyOverrides(cfg *config.Config) {
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *contentDir != "" {
		cfg.ContentDir = *contentDir
	}
}

func openStore(cfg *config.Config, catalog *content.Catalog) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := store.NewPostgresStore(cfg.DatabaseURL, catalog)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close postgres store")
			}
		}, nil
	case config.StoreFile:
		fs, err := store.NewFileStore(cfg.StatePath, catalog)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case config.StoreMemory:
		return store.NewMemoryStore(catalog), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
