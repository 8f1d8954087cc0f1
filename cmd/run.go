package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ircadapter "github.com/bnema/bncbot/internal/adapters/irc"
	"github.com/bnema/bncbot/internal/bot"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the relay and serve BNC requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var session *bot.Session
			client := ircadapter.NewClient(app.cfg, app.logger, func(ctx context.Context, line string) {
				session.HandleLine(ctx, line)
			})

			session, err = bot.NewSession(app.cfg, app.repo, client, bot.DefaultHandlers(), app.logger)
			if err != nil {
				return err
			}

			if err := client.Connect(ctx); err != nil {
				return err
			}
			session.Start(ctx)

			select {
			case <-ctx.Done():
				session.Shutdown()
				// Give the farewell a moment on the wire before closing.
				time.Sleep(time.Second)
			case <-client.Done():
				app.logger.Error("connection lost, exiting")
			}

			return client.Close()
		},
	}
}
