package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
)

type queryOptions struct {
	docsPath string
	status   string
	mode     string
	joined   bool
	json     bool
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query [query...]",
		Short: "Index a document file and run queries against it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.docsPath, "docs", "", "JSON document records to index")
	cmd.Flags().StringVar(&opts.status, "status", "", "only return documents with this status")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "execution mode: sequential or parallel")
	cmd.Flags().BoolVar(&opts.joined, "joined", false, "run all queries as one batch and print a single result list")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}

func runQuery(cmd *cobra.Command, root *rootOptions, opts *queryOptions, queries []string) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	server, err := searchserver.New(cfg.Search)
	if err != nil {
		return fmt.Errorf("creating search server: %w", err)
	}
	if _, err := loadDocuments(ctx, server, opts.docsPath); err != nil {
		return err
	}

	if opts.joined {
		docs, err := server.ProcessQueriesJoined(ctx, queries)
		if err != nil {
			return fmt.Errorf("batch search failed: %w", err)
		}
		return printResults(cmd, opts.json, map[string][]ranker.ScoredDocument{"joined": docs}, []string{"joined"})
	}

	filter := searchserver.Filter{Mode: server.DefaultMode()}
	if opts.status != "" {
		status, err := index.ParseStatus(opts.status)
		if err != nil {
			return err
		}
		filter.Status = &status
	}
	if opts.mode != "" {
		if filter.Mode, err = executor.ParseMode(opts.mode); err != nil {
			return err
		}
	}

	results := make(map[string][]ranker.ScoredDocument, len(queries))
	for _, q := range queries {
		docs, err := server.FindTopDocuments(ctx, q, filter)
		if err != nil {
			return fmt.Errorf("search %q failed: %w", q, err)
		}
		results[q] = docs
	}
	return printResults(cmd, opts.json, results, queries)
}

func printResults(cmd *cobra.Command, asJSON bool, results map[string][]ranker.ScoredDocument, order []string) error {
	if asJSON {
		out := make([]map[string]any, 0, len(order))
		for _, q := range order {
			docs := results[q]
			if docs == nil {
				docs = []ranker.ScoredDocument{}
			}
			out = append(out, map[string]any{"query": q, "results": docs})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for _, q := range order {
		fmt.Fprintf(cmd.OutOrStdout(), "Results for %q:\n", q)
		if len(results[q]) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "  No results found.")
			continue
		}
		for _, d := range results[q] {
			fmt.Fprintf(cmd.OutOrStdout(), "  { document_id = %d, relevance = %g, rating = %d }\n", d.ID, d.Relevance, d.Rating)
		}
	}
	return nil
}
