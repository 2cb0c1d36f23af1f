package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"webapp-infra/internal/awsapi"
	"webapp-infra/internal/remediation"
)

// backends are the remediation collaborators for one region.
type backends struct {
	registry remediation.Registry
	targets  remediation.TargetHealthSource
	notifier remediation.Notifier
}

type backendLoader func(ctx context.Context, region string) (*backends, error)

func loadAWS(ctx context.Context, region string) (*backends, error) {
	services, err := awsapi.LoadServices(ctx, region)
	if err != nil {
		return nil, err
	}
	return &backends{
		registry: services.Registry,
		targets:  services.TargetHealth,
		notifier: services.Notifier,
	}, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, reading from system environment")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd(loadAWS).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
