package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/db"
	"github.com/jmehdipour/churn-predictor/internal/dispatcher"
	"github.com/jmehdipour/churn-predictor/internal/kafka"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/pipeline"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
	"github.com/jmehdipour/churn-predictor/internal/worker"
)

var scorerCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Score customer records streamed from Kafka",
	RunE:  runScorer,
}

func runScorer(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) model
	bundle, err := artifact.LoadDir(cfg.Model.Dir)
	if err != nil {
		return fmt.Errorf("load model artifacts from %s: %w", cfg.Model.Dir, err)
	}

	// 3) DB connection (MySQL) and history
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.Pool(cfg.MySQL))
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	hist := history.New(dbx, repository.NewPredictionsRepository(dbx), repository.NewOutboxRepository(dbx))

	// 4) retention targets → dispatcher
	var alerts worker.Alerter
	if disp := dispatcher.FromConfig(cfg.Retention); disp.Enabled() {
		alerts = disp
	} else {
		logger.Log.Info("no retention targets enabled; alerts disabled")
	}

	// 5) kafka consumer
	consumer := kafka.NewConsumerFromConfig(kafka.FromConfig(cfg.Kafka))
	defer consumer.Close()

	w := worker.NewScorerKafka(consumer, pipeline.New(bundle, 1), hist, alerts)

	// tune knobs
	if cfg.Scorer.WorkerCount > 0 {
		w.Workers = cfg.Scorer.WorkerCount
	}
	if cfg.Scorer.BatchSize > 0 {
		w.BatchSize = cfg.Scorer.BatchSize
	}
	if cfg.Scorer.BatchWait > 0 {
		w.BatchWait = cfg.Scorer.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("scorer started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.String("model_version", bundle.Version),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait))

	return w.Run(ctx)
}
