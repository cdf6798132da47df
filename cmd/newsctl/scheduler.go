package main

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the scheduler is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.client.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, status, func() error {
				state := "stopped"
				if status.Running {
					state = "running"
				}
				printf(w, "Scheduler:           %s\n", state)
				printf(w, "Registered crawlers: %d\n", status.RegisteredCrawlers)
				return nil
			})
		},
	}
}

func (a *app) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Start(cmd.Context())
			if err != nil {
				return err
			}
			return a.printControl(cmd, resp)
		},
	}
}

func (a *app) stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the scheduler loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Stop(cmd.Context())
			if err != nil {
				return err
			}
			return a.printControl(cmd, resp)
		},
	}
}

func (a *app) printControl(cmd *cobra.Command, resp *schedulerapi.ControlResponse) error {
	w := cmd.OutOrStdout()
	return a.print(w, resp, func() error {
		printf(w, "%s\n", resp.Message)
		return nil
	})
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts and recent crawl results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, stats, func() error {
				printf(w, "Tasks:          %d (%d enabled, %d disabled)\n", stats.TotalTasks, stats.EnabledTasks, stats.DisabledTasks)
				printf(w, "Recent crawls:  %d succeeded, %d failed\n", stats.RecentSuccess, stats.RecentFailed)
				printf(w, "Countries:      %d\n\n", stats.Countries)
				return renderCountries(w, stats.CountriesList)
			})
		},
	}
}

func (a *app) countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List task counts per country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Countries(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, resp, func() error {
				return renderCountries(w, resp.Countries)
			})
		},
	}
}

func renderCountries(w io.Writer, countries []schedulerapi.CountryStats) error {
	rows := make([][]string, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, []string{
			c.Country,
			strconv.Itoa(c.TotalTasks),
			strconv.Itoa(c.EnabledTasks),
			strconv.Itoa(c.DisabledTasks),
		})
	}
	return renderTable(w, []string{"Country", "Total", "Enabled", "Disabled"}, rows)
}

func (a *app) initCmd() *cobra.Command {
	var interval int
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create tasks for every configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.InitTasks(cmd.Context(), interval)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, resp, func() error {
				printf(w, "%s: %d tasks, interval %d minutes\n", resp.Message, resp.TotalTasks, resp.IntervalMinutes)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&interval, "interval", schedulerapi.DefaultInitInterval, "crawl interval in minutes for new tasks")
	return cmd
}
