package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/logging"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

// app holds the state shared by every newsctl command.
type app struct {
	v      *viper.Viper
	client *schedulerapi.Client
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "newsctl",
		Short: "Manage the news crawl scheduler",
		Long: `newsctl talks to the newscrawlr API to control the crawl scheduler,
inspect tasks, history and articles, and extract single articles.

Example usage:
  newsctl status                  # Is the scheduler running?
  newsctl tasks --country uk      # List the tasks of one country
  newsctl interval bbc 30         # Crawl bbc every 30 minutes
  newsctl history --status failed # Show recent failures`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("base-url", schedulerapi.DefaultBaseURL, "newscrawlr API base url")
	flags.Duration("timeout", schedulerapi.DefaultTimeout, "request timeout")
	flags.Bool("json", false, "print raw JSON responses")
	flags.BoolP("verbose", "v", false, "log requests")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("json", flags.Lookup("json"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindEnv("base_url", schedulerapi.BaseURLEnv)
	_ = a.v.BindEnv("timeout", "NEWS_API_TIMEOUT")

	root.AddCommand(
		a.statusCmd(), a.startCmd(), a.stopCmd(), a.statsCmd(), a.countriesCmd(), a.initCmd(),
		a.tasksCmd(), a.taskCmd(), a.enableCmd(), a.disableCmd(), a.intervalCmd(), a.runCmd(),
		a.historyCmd(), a.articlesCmd(),
		a.extractCmd(), a.platformsCmd(), a.healthCmd(),
	)
	return root
}

// init builds the API client once flags and environment are resolved.
func (a *app) init() error {
	level := "warn"
	if a.v.GetBool("verbose") {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return err
	}
	a.logger = logger

	timeout := a.v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = schedulerapi.DefaultTimeout
	}
	a.client = schedulerapi.New(
		schedulerapi.WithBaseURL(a.v.GetString("base_url")),
		schedulerapi.WithTimeout(timeout),
		schedulerapi.WithLogger(logger),
	)
	a.logger.Debug("configuration loaded", zap.String("base_url", a.client.BaseURL()), zap.Duration("timeout", timeout))
	return nil
}

// print writes v as JSON when --json is set and calls human otherwise.
func (a *app) print(w io.Writer, v interface{}, human func() error) error {
	if a.v.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return human()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
