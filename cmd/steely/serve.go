// cmd/steely/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"go-steely/internal/demo"
	"go-steely/internal/recorder"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo HTTP API",
		Long: `Starts a small item API. Every request is saved as a curl command and as a
Postman collection item, and handler durations are logged and exported on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			if addr, _ := cmd.Flags().GetString("redis"); cmd.Flags().Changed("redis") {
				a.cfg.RedisAddr = addr
			}
			handler, stop, err := a.handler(cmd)
			if err != nil {
				return err
			}
			defer stop()

			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				a.log.Info("starting demo server", "addr", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-shutdown:
				a.log.Info("shutting down", "signal", sig.String())
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					a.log.Warn("graceful shutdown failed", "timeout", shutdownTimeout, "err", err)
					return srv.Close()
				}
				return nil
			}
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("redis", "", "Keep items in the Redis server at this address instead of memory")
	return cmd
}

// handler builds the demo API with its recorders and metrics registry.
func (a *app) handler(cmd *cobra.Command) (http.Handler, func(), error) {
	curl, err := recorder.NewCurl(a.cfg.ScriptName,
		recorder.WithDir(a.cfg.CurlDir), recorder.WithGroupMode(a.cfg.GroupMode))
	if err != nil {
		return nil, nil, err
	}
	postman, err := recorder.NewPostman(a.cfg.CollectionName, recorder.WithDir(a.cfg.PostmanDir))
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("recording requests", "curl", curl.ScriptPath(), "postman", postman.CollectionPath())

	opts, stop, err := a.startLogging(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg := demo.APIConfig{
		Recorders: []recorder.Recorder{curl, postman},
		Logger:    opts,
		Log:       a.log,
	}
	if a.cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		cfg.Registry = reg
	}

	store, closeStore, err := a.store(cmd.Context())
	if err != nil {
		stop()
		return nil, nil, err
	}
	return demo.NewHandler(store, cfg), func() { closeStore(); stop() }, nil
}

// store picks the item store: Redis when an address is configured,
// memory otherwise.
func (a *app) store(ctx context.Context) (demo.ItemStore, func(), error) {
	if a.cfg.RedisAddr == "" {
		return demo.NewStore(), func() {}, nil
	}
	rs := demo.NewRedisStore(a.cfg.RedisAddr)
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", a.cfg.RedisAddr, err)
	}
	a.log.Info("items kept in redis", "addr", a.cfg.RedisAddr)
	return rs, func() { _ = rs.Close() }, nil
}
