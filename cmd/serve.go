package cmd

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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/cache"
	"github.com/jmehdipour/churn-predictor/internal/db"
	httpSrv "github.com/jmehdipour/churn-predictor/internal/http"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/pipeline"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}

		// artifacts are all-or-nothing; a bad bundle never serves
		bundle, err := artifact.LoadDir(cfg.Model.Dir)
		if err != nil {
			return fmt.Errorf("load model artifacts from %s: %w", cfg.Model.Dir, err)
		}
		logger.Log.Info("model loaded",
			zap.String("version", bundle.Version),
			zap.Int("trees", len(bundle.Forest.Trees)),
			zap.Int("features", bundle.Assembler.Width()))

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.Pool(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedisClient(db.Redis(cfg.Redis))
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.Pool(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() {
			_ = chDB.Close()
		}()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		predictionsRepo := repository.NewPredictionsRepository(mysqlDB)
		deps := httpSrv.Deps{
			Pipeline:    pipeline.New(bundle, cfg.Pipeline.Workers),
			Model:       httpSrv.ModelInfoFrom(bundle),
			History:     history.New(mysqlDB, predictionsRepo, repository.NewOutboxRepository(mysqlDB)),
			Segments:    repository.NewCHSegmentsRepository(chDB, cfg.Analytics.Database),
			Customers:   repository.NewCustomersRepository(mysqlDB),
			Predictions: predictionsRepo,
			Redis:       redisClient,
		}
		if cfg.Cache.Enabled {
			deps.Cache = cache.New(redisClient, cfg.Cache.Prefix, cfg.Cache.TTL)
		}

		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
