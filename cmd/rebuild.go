package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scholarbot/src/config"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-index every registered document from its archived bytes",
	Long: `The rebuild command re-runs extraction, chunking and embedding for every
document in the registry using the raw bytes kept in the archive bucket. Use it
after changing chunking parameters or switching the index backend.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	settingDefaultConfig()
}

func runRebuild(cmd *cobra.Command, args []string) error {
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

	report, err := ingestor.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Printf("Rebuilt %d documents, %d failed.\n", len(report.Succeeded), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  %s: %s\n", f.Name, f.Reason)
	}
	return nil
}
