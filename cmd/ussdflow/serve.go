package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/ussdflow/internal/cli"
	httpAdapter "github.com/aretw0/ussdflow/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve [definition...]",
	Short: "Start the USSD HTTP gateway",
	Long: `Loads every configured definition (plus the files given as arguments) and
serves POST /api/ussd for the aggregator, with /healthz and /metrics alongside.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		cfg.Definitions = append(cfg.Definitions, args...)
		if len(cfg.Definitions) == 0 {
			return errors.New("no definitions to serve: list them in the config or pass them as arguments")
		}
		logger := newLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stack, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		handler := httpAdapter.NewHandler(stack.Gateway,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(stack.Metrics.Handler()),
			httpAdapter.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow),
		)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return stack.Sweeper.Run(gctx)
		})
		g.Go(func() error {
			logger.Info("ussdflow listening", "addr", srv.Addr, "services", len(stack.Gateway.Services()), "store", cfg.Store.Backend)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("ussdflow stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overriding server.addr")
}
