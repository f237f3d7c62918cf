package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course documents from a directory",
	Long: `Parses every .txt course document under the directory and indexes
its chunks. Without an argument the configured docs directory is used.
Courses that are already indexed are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "reindex courses that are already indexed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, args []string) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.Config.DocsDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no directory given and docs_dir is not configured")
	}

	report, err := a.System.IngestDirectory(ctx, dir, ingestForce)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d courses (%d chunks)\n", report.CoursesAdded, report.ChunksAdded)
	for _, name := range report.Skipped {
		fmt.Printf("Skipped %s\n", name)
	}
	return nil
}
