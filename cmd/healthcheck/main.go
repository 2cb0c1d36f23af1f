package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"webapp-infra/internal/awsapi"
	"webapp-infra/internal/config"
	"webapp-infra/internal/remediation"
)

type healthCheck struct {
	cfg    remediation.Config
	logger *slog.Logger
}

func (h *healthCheck) handle(ctx context.Context, event events.CloudWatchEvent) (remediation.Summary, error) {
	logger := h.logger
	var requestID string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
		logger = logger.With(slog.String("aws_request_id", lc.AwsRequestID))
	}
	logger.Info("Health check triggered",
		slog.String("source", event.Source),
		slog.String("detail_type", event.DetailType))

	cfg := h.cfg
	cfg.Logger = logger
	handler, err := remediation.New(cfg)
	if err != nil {
		return remediation.Summary{}, err
	}

	report := handler.Run(ctx, requestID)
	summary := report.Summary()
	if err := report.Err(); err != nil {
		logger.Error("Error in health check handler", slog.Any("error", err), slog.Any("summary", summary))
		return summary, err
	}
	logger.Info("Health check complete", slog.Any("summary", summary))
	return summary, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	settings, err := config.Load(config.New())
	if err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	services, err := awsapi.LoadServices(context.Background(), settings.Region)
	if err != nil {
		logger.Error("Failed to initialize AWS clients", slog.Any("error", err))
		os.Exit(1)
	}

	cfg := settings.Remediation()
	cfg.Registry = services.Registry
	cfg.Notifier = services.Notifier
	if cfg.TargetGroupARN != "" {
		cfg.TargetHealth = services.TargetHealth
	}
	if _, err := remediation.New(cfg); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	h := &healthCheck{cfg: cfg, logger: logger}
	lambda.Start(h.handle)
}
