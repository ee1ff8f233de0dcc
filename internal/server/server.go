package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/jobs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// languageReloadInterval is how often the worker picks up language table changes.
const languageReloadInterval = 5 * time.Minute

// Start runs the catalog worker: the scheduled publish/archive and expiration jobs plus
// the metrics endpoint. It blocks until the process is interrupted.
func Start(cfg *config.Config) error {
	app, err := NewApp(context.Background(), cfg, config.GetDb(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logrus.Errorf("error closing connections: %v", err)
		}
	}()

	ml, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	executor := jobs.NewTaskExecutor(
		jobs.NewScheduleTask(cfg.ScheduleCron, app.Service, app.Metrics),
		jobs.NewExpirationTask(cfg.ExpireCron, app.Service, app.Metrics),
	)
	if err := executor.Run(); err != nil {
		return err
	}
	reloader := jobs.NewLanguageReloader(app.Languages, languageReloadInterval)

	// make sure to wait for the workers to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("serving metrics on: ", cfg.MetricsAddr)
		if err := metricsServer.Serve(ml); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error serving metrics: %v", err)
			}
		}
		logrus.Infof("metrics server stopped")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reloader.Run()
		logrus.Infof("language reloader stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the worker")

	// listen for interrupt signal to gracefully shut down the worker
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	executor.Stop()
	reloader.Stop()
	err = metricsServer.Shutdown(context.Background())
	if err != nil {
		logrus.Errorf("error stopping metrics server: %v", err)
	}

	wg.Wait()

	return nil
}
