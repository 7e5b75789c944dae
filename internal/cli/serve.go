package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alvarorichard/Gomanga/internal/config"
	"github.com/alvarorichard/Gomanga/internal/server"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sources over an HTTP JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(a.registry).Run(ctx, config.Addr())
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	lo.Must0(viper.BindPFlag(config.ServerAddr, cmd.Flags().Lookup("addr")))
	return cmd
}
