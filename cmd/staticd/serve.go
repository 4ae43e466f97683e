package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/staticd/internal/config"
	"github.com/yourusername/staticd/internal/connection"
	"github.com/yourusername/staticd/internal/eventloop"
	"github.com/yourusername/staticd/internal/logging"
	"github.com/yourusername/staticd/internal/metrics"
	"github.com/yourusername/staticd/internal/pathresolve"
	"github.com/yourusername/staticd/internal/socket"
)

func runServe(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:    settings.LogLevel,
		Filename: settings.LogFilename,
		ToStdout: settings.LogToStdout,
	})
	if err != nil {
		return err
	}
	logger.Info("validated settings")

	root, err := pathresolve.NewRoot(settings.StaticDir)
	if err != nil {
		return fmt.Errorf("canonicalize static dir %q: %w", settings.StaticDir, err)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	handler := connection.New(connection.Config{
		ReadBufSize: settings.ReadBufSize,
		URILimit:    settings.URILengthLimit,
		Root:        root,
	}, logger, collector)

	if settings.MetricsAddr != "" {
		go serveMetrics(settings.MetricsAddr, logger)
	}

	logger.Infof("creating %d workers", settings.WorkerCount)
	workers := make([]*eventloop.Worker, 0, settings.WorkerCount)
	for i := 0; i < settings.WorkerCount; i++ {
		socketCfg := socket.Config{
			Host:    settings.Host,
			Port:    settings.Port,
			Backlog: settings.ListenBacklog,
			NoDelay: true,
		}
		listenFD, err := socket.Listen(socketCfg)
		if err != nil {
			return fmt.Errorf("worker %d: listen: %w", i, err)
		}
		w, err := eventloop.NewWorker(i, listenFD, socketCfg, handler, logger.WithField("worker", i), collector)
		if err != nil {
			return fmt.Errorf("worker %d: %w", i, err)
		}
		workers = append(workers, w)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(workers))
	for _, w := range workers {
		wg.Add(1)
		go func(w *eventloop.Worker) {
			defer wg.Done()
			if err := w.Run(); err != nil {
				errs <- err
			}
		}(w)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("received signal %s, shutting down", sig)
	case err := <-errs:
		logger.Errorf("worker failed: %v", err)
	}

	for _, w := range workers {
		if serr := w.Stop(); serr != nil {
			logger.Errorf("stop worker: %v", serr)
		}
	}
	wg.Wait()
	return nil
}

func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Errorf("metrics server: %v", err)
	}
}
