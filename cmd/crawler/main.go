package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/logging"
	"github.com/emilyzhang/newscrawlr/scheduler"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Get configuration.
	dbDSN := flag.String("dsn", envOr("DATABASE_URL", ""), "connection data source name")
	sources := flag.String("sources", envOr("SOURCES_FILE", "sources.yaml"), "news sources file (yaml or json)")
	maxWorkers := flag.Int("max-workers", scheduler.DefaultMaxWorkers, "maximum number of concurrent crawls")
	schedule := flag.String("schedule", scheduler.DefaultSchedule, "how often to check for due tasks (cron spec)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	once := flag.Bool("once", false, "run due tasks once and exit")
	source := flag.String("source", "", "crawl a single source now and exit")
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Println("Unable to start crawler.")
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := crawlerdb.Connect(ctx, *dbDSN, 3, logger)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("unable to migrate database", zap.Error(err))
	}

	// Create the scheduler and run it.
	sched := scheduler.New(db, scheduler.Config{
		SourcesPath: *sources,
		Schedule:    *schedule,
		MaxWorkers:  *maxWorkers,
		Logger:      logger,
	})
	defer sched.Close()
	if _, err := sched.LoadSources(); err != nil {
		logger.Warn("unable to register all sources", zap.Error(err))
	}

	switch {
	case *source != "":
		if err := sched.ExecuteSource(ctx, *source); err != nil {
			logger.Error("crawl failed", zap.String("source_id", *source), zap.Error(err))
		}
	case *once:
		if err := sched.CheckAndExecute(ctx); err != nil {
			logger.Error("unable to run due tasks", zap.Error(err))
		}
	default:
		if err := sched.Start(); err != nil {
			logger.Fatal("unable to start scheduler", zap.Error(err))
		}
		<-ctx.Done()
	}
}
