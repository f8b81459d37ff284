package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablesearch/internal/application/usecases"
)

func newLoginCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in anonymously to check the booking API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			if _, err := (usecases.Login{Auth: a.auth}).Execute(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "login: ok")
			return nil
		},
	}
}
