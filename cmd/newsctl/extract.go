package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		req      schedulerapi.ExtractRequest
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract a single article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			if markdown {
				req.OutputFormat = schedulerapi.FormatMarkdown
			}
			resp, err := a.client.Extract(cmd.Context(), req)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, resp, func() error {
				if markdown || resp.Data == nil {
					printf(w, "%s\n", resp.Markdown)
					return nil
				}
				item := resp.Data
				printf(w, "Title:     %s\n", item.Title)
				printf(w, "Platform:  %s\n", resp.Platform)
				if item.MetaInfo.AuthorName != "" {
					printf(w, "Author:    %s\n", item.MetaInfo.AuthorName)
				}
				if item.MetaInfo.PublishTime != "" {
					printf(w, "Published: %s\n", item.MetaInfo.PublishTime)
				}
				printf(w, "Media:     %d images, %d videos\n\n", len(item.Images), len(item.Videos))
				printf(w, "%s\n", strings.Join(item.Texts, "\n\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the article as Markdown")
	cmd.Flags().StringVar(&req.Platform, "platform", "", "platform id (detected from the url by default)")
	cmd.Flags().StringVar(&req.Cookie, "cookie", "", "cookie header sent with the article request")
	return cmd
}

func (a *app) platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms with dedicated support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Platforms(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, resp, func() error {
				rows := make([][]string, 0, len(resp.Platforms))
				for _, p := range resp.Platforms {
					rows = append(rows, []string{p.ID, p.Name})
				}
				return renderTable(w, []string{"ID", "Name"}, rows)
			})
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.print(w, resp, func() error {
				printf(w, "%s (%s)\n", resp.Status, resp.Timestamp)
				return nil
			})
		},
	}
}
