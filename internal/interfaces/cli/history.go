package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablesearch/internal/db"
	"github.com/example/tablesearch/internal/history"
)

func newHistoryCmd(f *rootFlags) *cobra.Command {
	var (
		limit     int
		olderThan time.Duration
		searchID  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Database.URL == "" {
				return fmt.Errorf("database.url is not set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			if err := a.openHistory(ctx); err != nil {
				return err
			}

			if olderThan > 0 {
				if err := a.hist.Prune(ctx, time.Now().Add(-olderThan)); err != nil {
					return err
				}
			}

			es, err := loadHistory(ctx, a.hist, searchID, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEARCH ID\tSIZE\tDATE\tTIME\tLOADED\tTOTAL\tWHEN")
			for _, e := range es {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					e.SearchID, e.Criteria.Size, e.Criteria.Date, e.Criteria.Time,
					e.Loaded, e.Total, e.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of searches to show")
	cmd.Flags().DurationVar(&olderThan, "prune", 0, "first delete searches older than this")
	cmd.Flags().StringVar(&searchID, "search-id", "", "show a single search")
	return cmd
}

// loadHistory returns the one search named by searchID, or the most recent
// ones when it is empty.
func loadHistory(ctx context.Context, repo *history.Repo, searchID string, limit int) ([]history.Entry, error) {
	if searchID == "" {
		return repo.ListRecent(ctx, limit)
	}
	e, err := repo.Get(ctx, searchID)
	if db.IsNotFound(err) {
		return nil, fmt.Errorf("no search recorded with id %q", searchID)
	}
	if err != nil {
		return nil, err
	}
	return []history.Entry{e}, nil
}
