package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type fileOutput struct {
	File   string                 `json:"file"`
	Result *core.FileImportResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Code   string                 `json:"code,omitempty"`
}

type importOutput struct {
	Command    string       `json:"command"`
	DurationMS int64        `json:"duration_ms"`
	Files      []fileOutput `json:"files"`
}

func newImportCmd() *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import region files (.csv, .json, .xlsx)",
		Args:  cobra.MinimumNArgs(1),
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

			if parallel <= 0 {
				parallel = cfg.Import.MaxConcurrent
			}
			service := core.NewService(store, core.Options{
				MaxConcurrent: parallel,
				MaxWait:       cfg.Import.MaxWait,
			})

			start := time.Now()
			files := make([]fileOutput, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallel)
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					files[i] = importOne(ctx, service, path, cfg.Import.MaxFileSize)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if err := writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				DurationMS: time.Since(start).Milliseconds(),
				Files:      files,
			}); err != nil {
				return err
			}

			var failed int
			for _, f := range files {
				if f.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 0, "Files imported at once (default IMPORT_MAX_CONCURRENT)")
	return cmd
}

func importOne(ctx context.Context, service *core.Service, path string, maxSize int64) fileOutput {
	out := fileOutput{File: path}

	info, err := os.Stat(path)
	if err == nil && info.Size() > maxSize {
		err = fmt.Errorf("file too large: %d bytes exceeds %d", info.Size(), maxSize)
	}
	var data []byte
	if err == nil {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		out.Error, out.Code = err.Error(), core.MapError(err).Code
		return out
	}

	result, err := service.ImportFile(ctx, filepath.Base(path), string(data))
	if result.JobID != 0 || len(result.Rejected) > 0 {
		out.Result = &result
	}
	if err != nil {
		out.Error, out.Code = err.Error(), core.MapError(err).Code
	}
	return out
}
