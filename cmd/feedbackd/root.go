package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "feedbackd",
		Short: "Public service feedback analysis API",
		Long: `feedbackd stores citizen feedback on public services, answers each piece of
feedback using similar past feedback, and summarizes feedback per district and service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default: ./config.yaml when present)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newReindexCmd(opts),
		newImportCmd(opts),
		newSearchCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// resolveConfigPath returns path, or config.yaml in the working directory when no path was
// given and that file exists. An empty result means defaults plus environment.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	fallback := filepath.Join(cwd, "config.yaml")
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}

// load reads the config and builds the logger. Commands other than serve stay quiet unless
// debug is on, so their output is only the result.
func (o *globalOptions) load(alwaysLog bool) (*config.Config, *zap.Logger, error) {
	path := resolveConfigPath(o.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	if !debug && !alwaysLog {
		return cfg, zap.NewNop(), nil
	}
	logger, err := utils.NewLogger(debug, "feedbackd", version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedbackd version %s\n", version)
		},
	}
}
