package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/tablesearch/internal/interfaces/web"
)

func newServerCmd(f *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve visitor search sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			hashKey, blockKey, err := a.cfg.HTTP.SessionKeys()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := a.openHistory(ctx); err != nil {
				return err
			}

			reg := web.NewRegistry(a.newSession, a.cfg.HTTP.SessionIdleTTL, a.log.Named("web"))
			ws := &web.Server{
				Visitors: web.NewVisitors(hashKey, blockKey),
				Sessions: reg,
				Auth:     a.auth,
				Log:      a.log.Named("web"),
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := reg.Run(ctx); !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				defer cancel()
				return web.Start(ctx, addr, ws.Routes(), a.log)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
