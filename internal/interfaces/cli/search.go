package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/application/usecases"
	"github.com/example/tablesearch/internal/domain/reservation"
)

func newSearchCmd(f *rootFlags) *cobra.Command {
	var (
		c       reservation.Criteria
		pages   int
		asJSON  bool
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find available tables for a party, date and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if !noStore {
				if err := a.openHistory(ctx); err != nil {
					return err
				}
			}

			st, err := usecases.RunSearch{Session: a.newSession(), Pages: pages}.Execute(ctx, c)
			if err != nil {
				return err
			}
			if asJSON {
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printResults(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&c.Size, "size", "2", "party size")
	cmd.Flags().StringVar(&c.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&c.Time, "time", "", "time, HH:MM")
	cmd.Flags().IntVar(&pages, "pages", 0, "extra pages to load after the first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session state as JSON")
	cmd.Flags().BoolVar(&noStore, "no-history", false, "do not record this search")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func printResults(w io.Writer, st search.State) {
	fmt.Fprintf(w, "search %s: %d of %d results\n", st.SearchID, len(st.Results), st.TotalResults)
	for _, r := range st.Results {
		fmt.Fprintf(w, "  %-32s %5.1f", r.Post.VenueName, r.Post.Score)
		for _, o := range r.Availability.Recommended {
			fmt.Fprintf(w, "  %s", o.Time)
		}
		fmt.Fprintln(w)
	}
	if st.CanLoadMore {
		fmt.Fprintln(w, "more results available, rerun with --pages")
	}
}
