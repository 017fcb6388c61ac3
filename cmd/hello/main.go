// Package main is the Lambda entry point of the hello backend.
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vyrodovalexey/edgegate/internal/hello"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

func main() {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:     getEnvOrDefault("LOG_LEVEL", "info"),
		Format:    "json",
		Component: "hello",
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := hello.LoadConfig()
	if err != nil {
		logger.Fatal("invalid hello environment", observability.Error(err))
	}

	lambda.Start(hello.New(cfg, logger).Handle)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
