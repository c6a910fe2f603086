package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/config"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/ghostrunner"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/storage"
)

// session holds everything a command needs once the root command has been set up.
type session struct {
	cfg     *config.Config
	ctx     context.Context
	params  api.CtxParams
	host    *host.Context
	logFile io.Closer
}

var current *session

var rootCmd = &cobra.Command{
	Use:           "ghostrunner",
	Short:         "Find, prepare and mod Ghostrunner",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logFile, err := setupLogging(cfg)
		if err != nil {
			return err
		}

		params := api.CtxParams{
			SettingsPath: cfg.SettingsPath,
			GamePath:     cfg.GamePath,
			LogCallback:  logCallback,
		}
		ctx := api.WithContext(cmd.Context(), params)

		err = storage.Open(ctx)
		if err != nil {
			return err
		}

		err = storage.Clean(ctx)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Failed to clean stale discoveries: %v", err)
		}

		hc, err := host.NewContext(cfg.HostVersion, storage.Discoveries)
		if err != nil {
			return err
		}

		if !ghostrunner.Register(ctx, hc) {
			return eris.Errorf("failed to register %s", ghostrunner.GameName)
		}

		current = &session{cfg: cfg, ctx: ctx, params: params, host: hc, logFile: logFile}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeSession()
	},
}

func closeSession() {
	if current == nil {
		return
	}

	storage.Close(current.ctx)
	if current.logFile != nil {
		current.logFile.Close()
	}
	current = nil
}

// loadConfig reads the config file and environment, then applies the command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	files := []string{}
	if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
		files = append(files, cfgFile)
	}

	cfg, err := config.Load(func(cfg *config.Config) {
		if flags.Changed("game-path") {
			cfg.GamePath, _ = flags.GetString("game-path")
		}
		if flags.Changed("settings") {
			cfg.SettingsPath, _ = flags.GetString("settings")
		}
		if flags.Changed("log-level") {
			cfg.Log.Level, _ = flags.GetString("log-level")
		}
		if flags.Changed("json-log") {
			cfg.Log.JSON, _ = flags.GetBool("json-log")
		}
	}, files...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse config")
	}

	return cfg, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "TOML config file (defaults to "+config.DefaultFile+" if present)")
	flags.String("game-path", "", "skip discovery and use this Ghostrunner folder")
	flags.String("settings", "", "folder for state.db")
	flags.String("log-level", "", "one of debug, info, warn, error")
	flags.Bool("json-log", false, "log JSON instead of human-readable lines")
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		closeSession()
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
