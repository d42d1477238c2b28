// Command airqtt configures air-Q devices and bridges their readings to Home Assistant over MQTT.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlowe/airqtt"
	"github.com/nlowe/airqtt/config"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/log"
)

var (
	configPath string
	logLevel   string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "airqtt",
		Short:         "Bridge air-Q air quality sensors to Home Assistant over MQTT",
		Version:       airqtt.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd, logLevel)
		},
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to the config file")
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error), overrides the config")
	_ = root.MarkPersistentFlagFilename("config", "yaml", "yml")

	root.AddCommand(
		newSetupCommand(),
		newRunCommand(),
		newListCommand(),
		newRemoveCommand(),
		newSensorsCommand(),
	)

	return root
}

func setupLogging(cmd *cobra.Command, level string) error {
	l, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	log.To(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: l}))
	return nil
}

// loadConfig reads the config file and applies --log-level on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel == "" {
		if err = setupLogging(cmd, cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func openStore(cmd *cobra.Command) (*config.Config, *entry.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := entry.Open(cfg.Entries)
	if err != nil {
		return nil, nil, err
	}

	return cfg, store, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
