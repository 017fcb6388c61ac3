// Package main is the Lambda entry point of the cfAuth authorizer.
//
// The expected secret and the identity header come from the function
// environment (secret, IDENTITY_HEADER). A missing secret stops the
// function at cold start instead of letting it answer requests.
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vyrodovalexey/edgegate/internal/authorizer"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

func main() {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:     getEnvOrDefault("LOG_LEVEL", "info"),
		Format:    "json",
		Component: "cfAuth",
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := authorizer.LoadConfig()
	if err != nil {
		logger.Fatal("invalid authorizer environment", observability.Error(err))
	}

	a, err := authorizer.New(cfg, authorizer.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create authorizer", observability.Error(err))
	}

	lambda.Start(a.Handle)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
