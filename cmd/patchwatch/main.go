package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpAdapter "github.com/patchwatch/patchwatch/internal/adapters/http"
	logAdapter "github.com/patchwatch/patchwatch/internal/adapters/log"
	"github.com/patchwatch/patchwatch/internal/adapters/ws"
	"github.com/patchwatch/patchwatch/internal/app"
	"github.com/patchwatch/patchwatch/internal/cliconfig"
	"github.com/patchwatch/patchwatch/internal/watcher"
)

const helpDescription = `
Watch a fleet of game-server instances and keep them on the latest build.

Highlights:
  - Polls each target's build manifest and running version independently.
  - Drives the full remote update procedure: credential, update command,
    restart detection over the management console, reinstall, start.
  - Posts a webhook notification when a target finishes updating.

Targets are declared in a TOML config file; see the example below.
`

var exampleUsage = strings.TrimSpace(`
  patchwatch --config /etc/patchwatch/config.toml
  patchwatch --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "patchwatch",
		Short:   "Keep a fleet of game-server instances on the latest published build",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.patchwatch/config.toml),
			// then environment, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			cliconfig.ApplyEnvConfig(&cfg, changed)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.ConfigureLevel(cfg.LogLevel); err != nil {
				return err
			}
			log = cliconfig.Logger()

			log.Info().Int("targets", len(cfg.Targets)).Str("config", cfgFile).Msg("configuration loaded")

			httpClient := &http.Client{Timeout: 30 * time.Second}
			rootLogger := logAdapter.NewZerologAdapterWithLogger(log)

			orchestrators := make([]*app.Orchestrator, 0, len(cfg.Targets))
			for _, t := range cfg.Targets {
				tlog := logAdapter.NewZerologAdapterWithLogger(
					log.With().Str("target", t.Name).Logger(),
				)
				orchestrators = append(orchestrators, app.NewOrchestrator(
					t,
					httpAdapter.NewVersionClient(httpClient, t.ManifestURL, t.ControlURL, t.APIKey),
					httpAdapter.NewControlClient(httpClient, t.ControlURL, t.APIKey),
					ws.NewDialer(tlog),
					httpAdapter.NewWebhookNotifier(httpClient, t.WebhookURL, t.Color, tlog),
					tlog,
				))
			}

			sup := app.NewSupervisor(rootLogger, orchestrators)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := sup.Start(ctx); err != nil {
				return fmt.Errorf("start supervisor: %w", err)
			}

			var cfgWatcher *watcher.Watcher
			if cfg.ConfigWatch && cfgFile != "" && cliconfig.FileExists(cfgFile) {
				cfgWatcher = watcher.New(cfgFile, rootLogger)
				cfgWatcher.Start(ctx)
			}

			<-sigCh
			log.Info().Msg("received signal, stopping...")

			if cfgWatcher != nil {
				cfgWatcher.Stop()
			}
			if err := sup.Stop(); err != nil {
				return fmt.Errorf("stop supervisor: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.patchwatch/config.toml)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.ConfigWatch, "config-watch", cfg.ConfigWatch, "warn when the config file changes on disk")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("patchwatch")
		os.Exit(1)
	}
}
