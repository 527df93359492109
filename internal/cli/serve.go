package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/nestling/internal/api"
	"github.com/terraincognita07/nestling/internal/notify"
	"github.com/terraincognita07/nestling/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(envPath func() string) *cobra.Command {
	var accessLog bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker and its local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return RunServe(ctx, envPath(), accessLog)
		},
	}
	cmd.Flags().BoolVar(&accessLog, "access-log", false, "log every HTTP request")
	return cmd
}

// RunServe blocks until ctx is cancelled or the listener fails.
func RunServe(ctx context.Context, envPath string, accessLog bool) error {
	feed := notify.NewFeed(notify.DefaultFeedCapacity)
	var broker mqtt.Client

	env, err := loadRuntime(envPath, func(env *runtime) services.AlarmSink {
		sinks := []services.AlarmSink{feed, notify.NewLogSink(env.logger.Named("alarms"))}
		if env.cfg.MQTTBroker == "" {
			return notify.NewFanout(sinks...)
		}
		client, err := notify.ConnectMQTT(env.cfg.MQTTBroker, env.logger.Named("mqtt"))
		if err != nil {
			env.logger.Warnf("serve: mqtt disabled: %v", err)
			return notify.NewFanout(sinks...)
		}
		broker = client
		return notify.NewFanout(append(sinks, notify.NewMQTTSink(client, env.cfg.MQTTTopic, env.logger.Named("mqtt")))...)
	})
	if err != nil {
		return err
	}
	defer env.close()
	if broker != nil {
		defer broker.Disconnect(250)
	}

	lifecycleCtx, cancelLifecycle := context.WithCancel(ctx)
	defer cancelLifecycle()
	env.tracker.Start(lifecycleCtx)

	handler := api.NewHandler(env.tracker, feed, env.i18n, env.logger.Named("api"))
	app := api.NewApp(handler, api.AppOptions{AccessLog: accessLog})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(env.cfg.ListenAddress())
	}()
	env.logger.Infof("nestling listening on http://%s (db: %s, tz: %s)", env.cfg.ListenAddress(), env.cfg.DBPath, env.cfg.Location.String())

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	cancelLifecycle()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		env.logger.Errorf("server shutdown failed: %v", err)
	}
	return <-listenErr
}
