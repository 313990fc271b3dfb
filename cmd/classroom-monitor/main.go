package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/api"
	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/internal/controllers/livenesscontroller"
	"github.com/thatsimonsguy/classroom-monitor/internal/datadog"
	"github.com/thatsimonsguy/classroom-monitor/internal/logging"
	"github.com/thatsimonsguy/classroom-monitor/internal/notifications"
	"github.com/thatsimonsguy/classroom-monitor/system/shutdown"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.EnvConfigFile), "Path to a JSON or YAML config file (defaults only when empty)")
	dbPath := flag.String("db", "data/classroom.db", "Path to the SQLite database file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Append JSON logs to this file")
	ddAgent := flag.String("dd-agent", os.Getenv("DD_AGENT_HOST"), "DogStatsD address, host:port (metrics off when empty)")
	ddNamespace := flag.String("dd-namespace", "classroom.", "Metric namespace")
	listen := flag.String("listen", "", "Listen address (defaults to the port in network.api_server_url)")
	flag.Parse()

	cfg, err := config.NewLoader(*configFile).Load()
	if err != nil {
		printConfigError(err)
		os.Exit(1)
	}

	logging.Init(logging.ParseLevel(*logLevel), *logFile, cfg.Diagnostics.DebugSerialEnabled)

	log.Info().
		Str("config_file", *configFile).
		Str("device_id", cfg.Network.DeviceID).
		Str("classroom", cfg.Classroom.ID).
		Msg("Starting classroom monitor")

	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	datadog.InitMetrics(*ddAgent, *ddNamespace, []string{"classroom:" + cfg.Classroom.ID})

	dbConn, err := db.Open(*dbPath)
	if err != nil {
		shutdown.ShutdownWithError(nil, err, "Failed to open database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go livenesscontroller.RunLivenessController(ctx, dbConn, cfg, cfg.Timing.SampleInterval())

	var notifier api.Notifier
	if cs := notifications.NewCloudSync(cfg); cs != nil {
		notifier = cs
	}

	addr := *listen
	if addr == "" {
		addr = api.ListenAddr(cfg)
	}

	server := api.NewServer(dbConn, cfg, notifier)
	if err := server.Start(ctx, addr); err != nil {
		shutdown.ShutdownWithError(dbConn, err, "API server stopped")
	}

	shutdown.Shutdown(dbConn)
}

// printConfigError lists each violation on its own line so operators can fix
// them all in one pass.
func printConfigError(err error) {
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "config: %d problem(s):\n", len(cfgErr.Violations))
	for _, v := range cfgErr.Violations {
		fmt.Fprintf(os.Stderr, "  - %s\n", v)
	}
}
