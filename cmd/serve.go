package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/server"
	"github.com/cwbudde/ransacfit/internal/store"
)

var (
	serveAddr    string
	serveDataDir string
	mqttBroker   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the job server",
	Long: `Runs fits as background jobs behind a JSON API with live progress over
server-sent events. Results are stored under --data-dir. With an MQTT
broker configured, progress is also published to <prefix>/jobs/<id>.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data", "Result store directory")
	serveCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if cmd.Flags().Changed("addr") {
		addr = serveAddr
	}
	dataDir := cfg.Server.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir = serveDataDir
	}
	mqttConfig := cfg.MQTT
	if cmd.Flags().Changed("mqtt-broker") {
		mqttConfig.Broker = mqttBroker
	}

	resultStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	srv := server.NewServer(addr, resultStore)

	client, err := server.ConnectMQTT(mqttConfig)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Disconnect(250)
		srv.AddSink(server.NewMQTTSink(client, mqttConfig.Prefix))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		slog.Info("Received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
