package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/history"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [ROLLOUT_ID]",
	Short: "Show recorded rollouts",
	Long: `List recorded rollouts, newest first, or show one rollout in detail.

Examples:
  # The last 20 rollouts across all services
  rollout history

  # Rollouts of one service
  rollout history --service web --limit 5

  # Full detail for a single rollout
  rollout history 2f8a9c4e-1d3b-4f6a-9e2c-7b5d8a0c1e3f`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("service", "", "Only list rollouts for this service")
	historyCmd.Flags().Int("limit", 20, "Maximum number of rollouts to list")
	historyCmd.Flags().String("data-dir", "./rollout-data", "Directory for rollout history")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	service, _ := cmd.Flags().GetString("service")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open history store: %v", err)
	}
	defer store.Close()

	if len(args) == 1 {
		res, err := store.Get(args[0])
		if err != nil {
			return err
		}
		printRolloutDetail(res)
		return nil
	}

	var results []*types.RolloutResult
	if service != "" {
		results, err = store.ListByService(service, limit)
	} else {
		results, err = store.List(limit)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No rollouts recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSERVICE\tSTATE\tSERVING\tSTARTED\tDURATION")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Service,
			r.FinalState,
			orDash(r.ServingRevision),
			r.StartedAt.Format(time.RFC3339),
			r.Duration().Round(time.Millisecond),
		)
	}
	return w.Flush()
}

func printRolloutDetail(res *types.RolloutResult) {
	fmt.Printf("ID:          %s\n", res.ID)
	fmt.Printf("Service:     %s\n", res.Service)
	fmt.Printf("Region:      %s\n", orDash(res.Region))
	fmt.Printf("Image:       %s\n", res.Image)
	fmt.Printf("State:       %s\n", res.FinalState)
	if res.FailureKind != types.FailureNone {
		fmt.Printf("Failure:     %s\n", res.FailureKind)
	}
	fmt.Printf("Serving:     %s\n", orDash(res.ServingRevision))
	fmt.Printf("Candidate:   %s\n", orDash(res.CandidateRevision))
	fmt.Printf("Previous:    %s\n", orDash(res.PreviousRevision))
	fmt.Printf("Started:     %s\n", res.StartedAt.Format(time.RFC3339))
	fmt.Printf("Finished:    %s\n", res.FinishedAt.Format(time.RFC3339))
	fmt.Printf("Duration:    %s\n", res.Duration().Round(time.Millisecond))
	fmt.Printf("Reason:      %s\n", res.Reason)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
