package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"project-service/internal/config"
	"project-service/internal/models"
	"project-service/internal/service"
	"project-service/internal/store"
	"project-service/pkg/workbook"
)

var rootCmd = &cobra.Command{
	Use:   "projectsctl",
	Short: "Offline import and export of artisan projects.",
	Long:  `projectsctl moves projects between the project database and xlsx workbooks without going through the HTTP API.`,
}

func main() {
	rootCmd.AddCommand(newImportCommand(), newExportCommand())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openService connects to DB_DSN and returns the project service and a cleanup func.
func openService(ctx context.Context) (*service.ProjectService, func(), error) {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.DatabaseDSN == "" {
		return nil, nil, fmt.Errorf("DB_DSN is required")
	}
	pool, db, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewProjectService(
		store.NewProjectPostgresRepository(db),
		store.NewUpdatePostgresRepository(db),
		service.WithLogger(logger),
	)
	return svc, func() { _ = db.Close(); pool.Close() }, nil
}

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Create projects from the rows of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			maxErrors, _ := cmd.Flags().GetInt("max-errors")

			ctx := cmd.Context()
			svc, closeFn, err := openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			summary, err := workbook.ImportProjects(ctx, svc, file, workbook.ImportOptions{
				DryRun:    dryRun,
				MaxErrors: maxErrors,
			})
			printSummary(cmd, summary)
			return err
		},
	}
	cmd.Flags().Bool("dry-run", false, "validate rows without creating projects")
	cmd.Flags().Int("max-errors", 50, "abort after this many failing rows")
	return cmd
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write projects and their updates to a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			artisanID, _ := cmd.Flags().GetInt64("artisan-id")

			ctx := cmd.Context()
			svc, closeFn, err := openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var projects []models.Project
			if cmd.Flags().Changed("artisan-id") {
				projects, err = svc.ListByArtisan(ctx, artisanID)
			} else {
				projects, err = svc.ListAll(ctx)
			}
			if err != nil {
				return err
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := workbook.ExportProjects(ctx, file, projects, svc); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			slog.Info("export written", "file", out, "projects", len(projects))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "projects.xlsx", "output workbook path")
	cmd.Flags().Int64("artisan-id", 0, "only export the projects of this artisan")
	return cmd
}

func printSummary(cmd *cobra.Command, summary workbook.ImportSummary) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "IMPORT SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Total inserted: %d\n", summary.Inserted)
	fmt.Fprintf(w, "Total skipped: %d\n", summary.Skipped)
	fmt.Fprintf(w, "Total errors: %d\n", summary.Errors)
	fmt.Fprintf(w, "Dry run: %v\n", summary.DryRun)

	for _, sheet := range summary.Sheets {
		fmt.Fprintf(w, "  %s: inserted=%d, skipped=%d, errors=%d\n",
			sheet.Name, sheet.Inserted, sheet.Skipped, sheet.Errors)
		for _, sample := range sheet.Samples {
			fmt.Fprintf(w, "      Row %d: %s\n", sample.Row, sample.Message)
		}
	}
}
