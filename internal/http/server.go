package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/cache"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/http/middleware"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
)

// Scorer is the pipeline surface the handlers use.
type Scorer interface {
	Validate(raw model.RawRecord) (model.Customer, error)
	PredictCustomer(c model.Customer) (model.Prediction, error)
	RunBatch(records []model.RawRecord) (model.BatchOutcome, error)
	Version() string
}

// Recorder stores batch predictions. A nil Recorder skips history.
type Recorder interface {
	Record(ctx context.Context, batchID, modelVersion string, items []history.Scored) error
}

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Version  string
	Trees    int
	Features []string
	Splits   []int // per feature, same order as Features
}

func ModelInfoFrom(b *artifact.Bundle) ModelInfo {
	return ModelInfo{
		Version:  b.Version,
		Trees:    len(b.Forest.Trees),
		Features: b.Assembler.Features(),
		Splits:   b.Forest.SplitCounts(),
	}
}

// Deps are the collaborators of the HTTP API. Repositories may be nil when the
// backing store is not configured; their routes then answer 503.
type Deps struct {
	Pipeline    Scorer
	Model       ModelInfo
	Cache       *cache.Predictions
	History     Recorder
	Segments    repository.CHSegmentsRepository
	Customers   repository.CustomersRepository
	Predictions repository.PredictionsRepository
	Redis       *redis.Client
}

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), requestLogger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	bodyLimit := cfg.HTTP.BodyLimit
	maxUpload, err := bytes.Parse(bodyLimit)
	if err != nil || maxUpload <= 0 {
		bodyLimit, maxUpload = "10M", 10<<20
	}

	// middlewares
	mws := []echo.MiddlewareFunc{echoMid.BodyLimit(bodyLimit)}
	if d.Redis != nil {
		mws = append(mws, middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Redis:          d.Redis,
			RPS:            cfg.RateLimit.RPS,
			KeyPrefix:      "rl:ip:",
			Window:         time.Second,
			RetryAfterHint: true,
		}))
	}

	// routes
	v1 := e.Group("/v1", mws...)
	v1.POST("/predict", predictHandler(d.Pipeline, d.Cache))
	v1.POST("/predict/batch", batchHandler(d.Pipeline, d.History, batchLimits{
		MaxRows:   cfg.HTTP.MaxBatchRows,
		MaxUpload: maxUpload,
		TopN:      cfg.Analytics.Limit,
	}))
	v1.GET("/analytics/:report", analyticsHandler(d.Segments, cfg.Analytics.Limit))
	v1.GET("/customers/:id", customerHandler(d.Customers, d.Predictions))
	v1.GET("/model", modelHandler(d.Model))

	return &Server{e: e}
}

// requestLogger logs one zap line per request.
func requestLogger() echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Log.Info("request", fields...)
			return nil
		},
	})
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
