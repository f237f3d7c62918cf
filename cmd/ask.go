package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question about the indexed courses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "continue an existing session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, question string) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.System.Query(ctx, question, askSession)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range resp.Sources {
			fmt.Printf("  %s\n", src)
		}
	}
	fmt.Printf("\nSession: %s\n", resp.SessionID)
	return nil
}
