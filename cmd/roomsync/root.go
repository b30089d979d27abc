package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-roomsync/internal/config"
	"github.com/vovakirdan/wirechat-roomsync/internal/log"
)

// options collects flags shared by every subcommand. Flags left empty do
// not override the config file or environment.
type options struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "roomsync",
		Short:         "Join a wirechat room and keep a live local mirror of it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default ./config.yaml or $ROOMSYNC_CONFIG_DEFAULT_PATH)")
	flags.StringVar(&opts.overrides.ServerURL, "server", "", "websocket url of the chat server")
	flags.StringVar(&opts.overrides.Username, "username", "", "display name")
	flags.StringVar(&opts.overrides.Token, "token", "", "jwt sent with the join")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.overrides.TranscriptPath, "transcript", "", "sqlite file for the local transcript")

	cmd.AddCommand(
		newJoinCmd(opts),
		newRoomsCmd(opts),
		newTranscriptCmd(opts),
	)
	return cmd
}

// load resolves the configuration and builds the logger it asks for.
func (o *options) load() (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return cfg, bootstrap, err
	}
	cfg.UpdateFrom(o.overrides)

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}
