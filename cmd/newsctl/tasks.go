package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

func (a *app) tasksCmd() *cobra.Command {
	var (
		filter  schedulerapi.TaskFilter
		enabled bool
	)
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls"},
		Short:   "List crawl tasks",
		Long: `List crawl tasks, optionally filtered by country and state.

Examples:
  newsctl tasks                       # First page of all tasks
  newsctl tasks --country uk          # Tasks of one country
  newsctl tasks --enabled=false       # Disabled tasks only
  newsctl tasks --page 2 --page-size 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("enabled") {
				filter.Enabled = &enabled
			}
			tasks, err := a.client.Tasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, tasks, func() error {
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					rows = append(rows, []string{
						t.SourceID,
						t.SourceName,
						t.Country,
						yesNo(t.Enabled),
						strconv.Itoa(t.IntervalMinutes),
						formatTime(t.LastCrawlTime),
						formatTime(t.NextCrawlTime),
					})
				}
				return renderTable(w, []string{"Source", "Name", "Country", "Enabled", "Interval", "Last crawl", "Next crawl"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Country, "country", "", "only tasks of this country")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "only enabled (or, with =false, disabled) tasks")
	cmd.Flags().IntVar(&filter.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&filter.PageSize, "page-size", 0, "tasks per page")
	return cmd
}

func (a *app) taskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task <source-id>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.client.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, t, func() error {
				return renderTable(w, []string{"Field", "Value"}, [][]string{
					{"Source", t.SourceID},
					{"Name", t.SourceName},
					{"URL", t.URL},
					{"Country", t.Country},
					{"Enabled", yesNo(t.Enabled)},
					{"Interval", fmt.Sprintf("%d minutes", t.IntervalMinutes)},
					{"Last crawl", formatTime(t.LastCrawlTime)},
					{"Next crawl", formatTime(t.NextCrawlTime)},
				})
			})
		},
	}
}

func (a *app) updateTask(cmd *cobra.Command, sourceID string, update schedulerapi.TaskUpdate) error {
	resp, err := a.client.UpdateTask(cmd.Context(), sourceID, update)
	if err != nil {
		return err
	}
	return a.printAction(cmd.OutOrStdout(), resp)
}

func (a *app) printAction(w io.Writer, resp *schedulerapi.TaskActionResponse) error {
	return a.print(w, resp, func() error {
		printf(w, "%s: %s\n", resp.Message, resp.SourceID)
		return nil
	})
}

func (a *app) enableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <source-id>",
		Short: "Enable a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateTask(cmd, args[0], schedulerapi.TaskUpdate{Enabled: schedulerapi.Bool(true)})
		},
	}
}

func (a *app) disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <source-id>",
		Short: "Disable a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateTask(cmd, args[0], schedulerapi.TaskUpdate{Enabled: schedulerapi.Bool(false)})
		},
	}
}

func (a *app) intervalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interval <source-id> <minutes>",
		Short: "Change how often a task is crawled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil || minutes < 1 {
				return fmt.Errorf("interval must be a positive number of minutes: %s", args[1])
			}
			return a.updateTask(cmd, args[0], schedulerapi.TaskUpdate{IntervalMinutes: schedulerapi.Int(minutes)})
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <source-id>",
		Short: "Crawl a source now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.RunTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printAction(cmd.OutOrStdout(), resp)
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var filter schedulerapi.HistoryFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent crawl history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.client.History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, history, func() error {
				rows := make([][]string, 0, len(history))
				for _, h := range history {
					rows = append(rows, []string{
						formatTime(&h.CrawlTime),
						h.SourceID,
						h.Status,
						strconv.Itoa(h.ArticlesCount),
						fmt.Sprintf("%.1fs", h.DurationSeconds),
						formatString(h.ErrorMessage),
					})
				}
				return renderTable(w, []string{"Time", "Source", "Status", "Articles", "Duration", "Error"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&filter.SourceID, "source", "", "only this source")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only this status (success or failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of rows")
	return cmd
}

func (a *app) articlesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "articles <source-id>",
		Short: "List the newest articles of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articles, err := a.client.Articles(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, articles, func() error {
				rows := make([][]string, 0, len(articles))
				for _, art := range articles {
					rows = append(rows, []string{
						formatTime(art.PublishTime),
						art.Title,
						formatString(art.Author),
						art.URL,
					})
				}
				return renderTable(w, []string{"Published", "Title", "Author", "URL"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of articles")
	return cmd
}
