package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/loadtest"
)

func newLoadtestCmd() *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent search traffic to a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Queries) == 0 {
				cfg.Queries = loadtest.DefaultQueries
			}
			client := &http.Client{
				Timeout: 10 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        cfg.Concurrency * 2,
					MaxIdleConnsPerHost: cfg.Concurrency * 2,
					IdleConnTimeout:     90 * time.Second,
				},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target %s, %d workers, %d queries\n", cfg.BaseURL, cfg.Concurrency, len(cfg.Queries))
			report, err := loadtest.Run(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}
			report.Print(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the search service")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().Int64Var(&cfg.Requests, "requests", 0, "stop after this many requests")
	cmd.Flags().StringVar(&cfg.Mode, "mode", "", "execution mode sent with every query")
	cmd.Flags().StringArrayVar(&cfg.Queries, "query", nil, "query to send; repeatable")
	return cmd
}
