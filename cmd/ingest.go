package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scholarbot/src/config"
	"scholarbot/src/core/rag"
	"scholarbot/src/fsutil"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <folder>",
	Short: "Ingest every supported document under a folder",
	Long: `The ingest command walks a folder, ingests every supported file into
the index and prints a per-file report. Already ingested files are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ingestor, err := buildIngestor(ctx, cfg, db)
	if err != nil {
		return err
	}

	fs := fsutil.NewLocalFileStore()
	files, err := fs.ListFiles(args[0], rag.SupportedExtensions())
	if err != nil {
		return fmt.Errorf("failed to list folder: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No supported files found.")
		return nil
	}

	bar := progressbar.Default(int64(len(files)), "ingesting")

	var succeeded, skipped, failed int
	for _, path := range files {
		bar.Describe(filepath.Base(path))

		data, err := fs.ReadFile(path)
		if err != nil {
			failed++
			fmt.Printf("\n%s: %v\n", filepath.Base(path), err)
			bar.Add(1)
			continue
		}

		result, err := ingestor.IngestFile(ctx, filepath.Base(path), data)
		switch {
		case err != nil:
			failed++
			fmt.Printf("\n%s: %v\n", filepath.Base(path), err)
		case result.Duplicate:
			skipped++
		default:
			succeeded++
		}
		bar.Add(1)
	}

	fmt.Printf("\nIngested %d, skipped %d, failed %d of %d files.\n",
		succeeded, skipped, failed, len(files))
	return nil
}
