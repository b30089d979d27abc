package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-roomsync/internal/app"
	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

func newRoomsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List the rooms the server knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()

			client, err := app.Dial(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			go func() { _ = client.Listen(ctx, func(room.Event) {}) }()

			rooms, err := core.ListRooms(ctx, client)
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}
			for _, name := range rooms {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
