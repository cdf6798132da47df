package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/extractor"
	"github.com/emilyzhang/newscrawlr/scheduler"
)

const (
	serviceName    = "News Extractor API"
	serviceVersion = "0.2.0"
	shutdownGrace  = 10 * time.Second
)

// Store is the read and update access the API needs on top of what the
// scheduler writes.
type Store interface {
	GetTask(ctx context.Context, sourceID string) (*crawlerdb.Task, error)
	ListTasks(ctx context.Context, f crawlerdb.TaskFilter) ([]*crawlerdb.Task, error)
	UpdateTaskSettings(ctx context.Context, sourceID string, enabled *bool, intervalMinutes *int) (*crawlerdb.Task, error)
	CountryStats(ctx context.Context) ([]crawlerdb.CountryStats, error)
	TaskHistory(ctx context.Context, taskID, limit int) ([]*crawlerdb.History, error)
	RecentHistory(ctx context.Context, limit int) ([]*crawlerdb.History, error)
	ArticlesBySource(ctx context.Context, sourceID string, limit int) ([]*crawlerdb.Article, error)
}

// Server represents an API server containing a database client, the crawl
// scheduler, an article extractor and a logger.
type Server struct {
	Logger    *zap.Logger
	db        Store
	scheduler *scheduler.Scheduler
	extractor *extractor.Extractor
	now       func() time.Time
}

// New creates a new API Server.
func New(db Store, sched *scheduler.Scheduler, ex *extractor.Extractor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ex == nil {
		ex = extractor.New(nil)
	}
	return &Server{
		Logger:    logger,
		db:        db,
		scheduler: sched,
		extractor: ex,
		now:       time.Now,
	}
}

// Handler returns the HTTP handler serving the API and its metrics. Cross
// origin requests are allowed from anywhere so browser clients can reach it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.router)
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
}

// Start serves the API on addr until ctx is cancelled, then shuts the server
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting API server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
