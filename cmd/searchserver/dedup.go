package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
)

func newDedupCmd(root *rootOptions) *cobra.Command {
	var docsPath string
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Report documents whose term sets duplicate an earlier document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			server, err := searchserver.New(cfg.Search)
			if err != nil {
				return fmt.Errorf("creating search server: %w", err)
			}
			if _, err := loadDocuments(cmd.Context(), server, docsPath); err != nil {
				return err
			}
			for _, id := range server.RemoveDuplicates(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "Found duplicate document id %d\n", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents remain\n", server.DocumentCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&docsPath, "docs", "", "JSON document records to index")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}
