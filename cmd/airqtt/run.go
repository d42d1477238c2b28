package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nlowe/airqtt/bridge"
	"github.com/nlowe/airqtt/config"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/log"
	"github.com/nlowe/airqtt/metrics"
	"github.com/nlowe/airqtt/mqtt"
	"github.com/nlowe/airqtt/mqtt/adapter/autopaho"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"start"},
		Short:   "Run the bridge",
		Long: `Connect to the MQTT broker and publish every configured device to Home Assistant.

The bridge runs in the foreground until SIGINT or SIGTERM is received. Devices added with "airqtt setup" or removed with
"airqtt remove" while the bridge is running are picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := openStore(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBridge(ctx, cfg, store)
		},
	}
}

func clientID(cfg *config.Config) string {
	if cfg.MQTT.ClientID != "" {
		return cfg.MQTT.ClientID
	}

	return "airqtt-" + uuid.NewString()
}

func runBridge(ctx context.Context, cfg *config.Config, store bridge.Store) error {
	l := log.ForComponent("run")

	broker, err := cfg.MQTT.BrokerURL()
	if err != nil {
		return err
	}

	w, sub, disconnect, err := autopaho.DialMQTT(ctx, autopaho.Options{
		Broker:    broker,
		ClientID:  clientID(cfg),
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		KeepAlive: cfg.MQTT.KeepAlive,
		Will: &autopaho.Will{
			Topic:   mqtt.JoinTopic(cfg.TopicPrefix, bridge.AvailabilityTopic),
			Payload: []byte(hass.Unavailable),
			Retain:  true,
		},
	})
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Listen != "" {
		collector = metrics.NewCollector()
	}

	b := bridge.New(bridge.Options{
		Writer:          w,
		Subscriber:      sub,
		Store:           store,
		DiscoveryPrefix: cfg.Discovery.Prefix,
		TopicPrefix:     cfg.TopicPrefix,
		ScanInterval:    cfg.ScanInterval,
		Metrics:         collector,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})

	if collector != nil {
		handler, err := collector.Handler()
		if err != nil {
			return errors.Join(err, disconnect(context.WithoutCancel(ctx)))
		}

		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			l.Info("Serving metrics", "listen", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})
		g.Go(func() error {
			<-gctx.Done()

			shutdown, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()

			return srv.Shutdown(shutdown)
		})
	}

	err = g.Wait()
	l.Info("Shutting down")

	shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	return errors.Join(err, disconnect(shutdown))
}
