// Package main is the entry point for edgegate.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/gatekeeper"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	showVersion  bool
	printOutputs bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadAndValidateConfig(flags.configPath, logger)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return
	}

	app, err := initApplication(context.Background(), cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to build gatekeeper", observability.Error(err))
		return
	}

	if flags.printOutputs {
		if err := printOutputs(os.Stdout, app.gatekeeper.Outputs()); err != nil {
			fatalWithSync(logger, "failed to print outputs", observability.Error(err))
		}
		return
	}

	runApplication(app, logger)
}

// parseFlags parses command line flags. Unset flags fall back to
// EDGEGATE_* environment variables.
func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("edgegate", flag.ContinueOnError)

	configPath := fs.String("config", getEnvOrDefault("EDGEGATE_CONFIG_PATH", "configs/edgegate.yaml"),
		"Path to configuration file")
	logLevel := fs.String("log-level", getEnvOrDefault("EDGEGATE_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", getEnvOrDefault("EDGEGATE_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := fs.Bool("version", false, "Show version information")
	printOutputs := fs.Bool("print-outputs", false, "Build the gatekeeper, print its outputs and exit")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}

	return cliFlags{
		configPath:   *configPath,
		logLevel:     *logLevel,
		logFormat:    *logFormat,
		showVersion:  *showVersion,
		printOutputs: *printOutputs,
	}, nil
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "edgegate version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger. With -print-outputs logs go to
// stderr so stdout carries only the outputs document.
func initLogger(flags cliFlags) observability.Logger {
	logCfg := observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	}
	if flags.printOutputs {
		logCfg.Output = "stderr"
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) (*config.Config, error) {
	logger.Info("starting edgegate",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Int("functions", len(cfg.Spec.Functions)),
		observability.Int("routes", len(cfg.Spec.Routes)),
		observability.Int("allow_list", len(cfg.Spec.Firewall.AllowList)),
	)

	return cfg, nil
}

// printOutputs writes the operator outputs as YAML.
func printOutputs(w io.Writer, outputs gatekeeper.Outputs) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(outputs); err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	return enc.Close()
}

// fatalWithSync flushes the logger before exiting.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	os.Exit(1)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
