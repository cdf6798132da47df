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

	"github.com/emilyzhang/newscrawlr/api"
	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/extractor"
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
	addr := flag.String("addr", envOr("API_ADDR", ":8000"), "address to listen on")
	sources := flag.String("sources", envOr("SOURCES_FILE", "sources.yaml"), "news sources file (yaml or json)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	autostart := flag.Bool("autostart", false, "start the scheduler loop on boot")
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Println("Unable to start API server.")
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// tries connecting to the database a few times until it gives up
	db, err := crawlerdb.Connect(ctx, *dbDSN, 3, logger)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("unable to migrate database", zap.Error(err))
	}

	sched := scheduler.New(db, scheduler.Config{
		SourcesPath: *sources,
		Logger:      logger.Named("scheduler"),
	})
	defer sched.Close()
	if _, err := sched.LoadSources(); err != nil {
		logger.Warn("unable to register all sources", zap.Error(err))
	}
	if *autostart {
		if err := sched.Start(); err != nil {
			logger.Fatal("unable to start scheduler", zap.Error(err))
		}
	}

	// Create api server and run it.
	s := api.New(db, sched, extractor.New(nil), logger.Named("api"))
	if err := s.Start(ctx, *addr); err != nil {
		logger.Error("api server stopped", zap.Error(err))
	}
}
