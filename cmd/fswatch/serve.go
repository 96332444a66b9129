package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vistta-org/fs/internal/handler"
	"github.com/vistta-org/fs/internal/watcher"
)

func serveMain(command *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfiguration(command)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := watcher.NewMetrics(registry)

	ws := handler.NewWSHandler(logger)
	mounts := make(handler.Mounts, 0, len(cfg.Roots))
	for _, r := range cfg.Roots {
		m, err := handler.OpenMount(cfg, r, logger)
		if err != nil {
			return errors.Wrapf(err, "unable to open root %s", r.Alias)
		}
		defer m.Close()
		mounts = append(mounts, m)

		session := watcher.New(m.Storage, m.Resolver).Watch(ctx, m.Base, watchOptions(cfg, r, logger, metrics))
		defer session.Close()
		go ws.Follow(ctx, m, session)

		if r.GitRef != "" {
			logger.Info("serving root", "alias", r.Alias, "path", r.Path, "ref", r.GitRef)
		} else {
			logger.Info("serving root", "alias", r.Alias, "path", r.Path)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.NewRouter(mounts, ws, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", "http://localhost"+server.Addr, "config", cfg.GetConfigFilePath())
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(server.Shutdown(shutdownCtx), "shutdown failed")
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve configured roots over HTTP with a live change stream",
	Args:  cobra.NoArgs,
	RunE:  serveMain,
}
