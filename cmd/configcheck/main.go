package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/system/startup"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("configcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", os.Getenv(config.EnvConfigFile), "Config file to check (JSON or YAML)")
	dump := fs.String("dump", "", "Print the effective config, password redacted: json or yaml")
	header := fs.String("header", "", "Write the firmware config.h to this path")
	writeDefaults := fs.String("write-defaults", "", "Write the default config to this path (format from extension) and exit")
	serviceUnit := fs.String("service-unit", "", "Write a systemd unit for the hub to this path")
	serviceUser := fs.String("service-user", "classroom", "User for -service-unit")
	serviceDir := fs.String("service-dir", "/opt/classroom-monitor", "Working directory for -service-unit")
	serviceDB := fs.String("service-db", "/opt/classroom-monitor/data/classroom.db", "Database path for -service-unit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *writeDefaults != "" {
		if err := config.Save(*writeDefaults, config.Default()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Default configuration written to %s\n", *writeDefaults)
		return 0
	}

	cfg, err := config.NewLoader(*configFile).Load()
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(stderr, "Configuration is invalid (%d problem(s)):\n", len(cfgErr.Violations))
			for _, v := range cfgErr.Violations {
				fmt.Fprintf(stderr, "  - %s\n", v)
			}
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	for _, w := range cfg.Warnings() {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	if *dump != "" {
		data, err := config.Marshal(cfg.Redacted(), config.Format(*dump))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		stdout.Write(data)
	}

	if *header != "" {
		if err := startup.WriteDeviceHeader(*header, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Device header written to %s\n", *header)
	}

	if *serviceUnit != "" {
		err := startup.InstallService(*serviceUnit, startup.ServiceOptions{
			User:       *serviceUser,
			WorkDir:    *serviceDir,
			Binary:     *serviceDir + "/classroom-monitor",
			ConfigFile: *configFile,
			DBPath:     *serviceDB,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Service unit written to %s\n", *serviceUnit)
	}

	if *dump == "" && *header == "" && *serviceUnit == "" {
		fmt.Fprintln(stdout, "Configuration is valid")
	}
	return 0
}
