// Command pharmtutor runs the psychopharmacology study bot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/pharmtutor/core/buildinfo"
	corecmd "github.com/m3rciful/pharmtutor/core/cmd"
	coredatabase "github.com/m3rciful/pharmtutor/core/database"
	"github.com/m3rciful/pharmtutor/internal/app"
	"github.com/m3rciful/pharmtutor/internal/content"
)

const configEnv = "CONFIG_PATH"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(*cobra.Command, []string) error {
			return serveBot(configPath)
		},
	}

	root := &cobra.Command{
		Use:          "pharmtutor",
		Short:        "Telegram bot for psychopharmacology study",
		Version:      fmt.Sprintf("%s (%s)", buildinfo.Version, buildinfo.Commit),
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml",
		"config file; "+configEnv+" takes precedence")

	root.AddCommand(serve, newMigrateCommand(&configPath), newContentCommand())
	return root
}

func serveBot(configPath string) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath: resolveConfig(configPath),
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(c)
		},
	})
}

func resolveConfig(flagPath string) string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return flagPath
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(resolveConfig(*configPath))
			if err != nil {
				return err
			}
			if err := coredatabase.RunMigrations(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newContentCommand() *cobra.Command {
	group := &cobra.Command{
		Use:   "content",
		Short: "Inspect the content catalog",
	}
	group.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a catalog file, or the embedded catalog without a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := content.Load(path)
			if err != nil {
				return err
			}
			n := cat.Counts()
			fmt.Fprintf(cmd.OutOrStdout(),
				"ok: classes=%d drugs=%d questions=%d cases=%d interactions=%d glossary=%d neurotransmitters=%d tips=%d\n",
				n.Classes, n.Drugs, n.Questions, n.Cases, n.Interactions, n.Glossary, n.Neurotransmitters, n.Tips)
			return nil
		},
	})
	return group
}
