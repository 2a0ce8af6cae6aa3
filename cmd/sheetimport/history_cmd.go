package main

import (
	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/database"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past import jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, closeStore, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore()

			history, err := core.NewService(store, core.Options{}).ListJobs(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), history)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", core.DefaultPageSize, "Jobs per page (max 100)")
	return cmd
}
