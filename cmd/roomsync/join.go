package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-roomsync/internal/app"
)

func newJoinCmd(opts *options) *cobra.Command {
	var (
		controlAddr string
		noChat      bool
	)

	cmd := &cobra.Command{
		Use:   "join [room]",
		Short: "Join a room, serve the control api and chat from stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Room = args[0]
			}
			if cmd.Flags().Changed("control") {
				cfg.ControlAddr = controlAddr
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if !noChat {
				c := newChat(application.Session(), cmd.OutOrStdout())
				application.Session().Subscribe(c.observe)
				go func() {
					// stdin may close early when detached; only /quit ends the session
					if c.run(ctx, os.Stdin) {
						cancel()
					}
				}()
			}

			err = application.Run(ctx)
			if errors.Is(err, app.ErrKicked) {
				logger.Warn().Err(err).Msg("session ended")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&controlAddr, "control", "", "control api listen address, empty to disable")
	cmd.Flags().BoolVar(&noChat, "no-chat", false, "do not read chat lines from stdin")
	return cmd
}
