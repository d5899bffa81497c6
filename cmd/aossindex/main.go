package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/config"
	"github.com/kailas-cloud/aossindex/internal/controlplane"
	"github.com/kailas-cloud/aossindex/internal/dataplane"
	"github.com/kailas-cloud/aossindex/internal/domain"
	logpkg "github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	"github.com/kailas-cloud/aossindex/internal/retry"
	cfnTransport "github.com/kailas-cloud/aossindex/internal/transport/cfn"
	"github.com/kailas-cloud/aossindex/internal/usecase/index"
	"github.com/kailas-cloud/aossindex/internal/usecase/preflight"
	"github.com/kailas-cloud/aossindex/internal/usecase/readiness"
	"github.com/kailas-cloud/aossindex/internal/usecase/reconcile"
	"github.com/kailas-cloud/aossindex/internal/usecase/stabilize"
	"github.com/kailas-cloud/aossindex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "aossindex", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting aossindex custom resource",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("region", cfg.AWS.Region),
	)

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	signed, err := dataplane.NewSignedClient(dataplane.SignerConfig{
		Region:      cfg.AWS.Region,
		Service:     cfg.AWS.SigningService,
		Credentials: awsCfg.Credentials,
		HTTPClient:  dataplane.NewHTTPClient(config.Duration(cfg.AWS.HTTPTimeoutSec)),
		UserAgent:   version.UserAgent(),
	})
	if err != nil {
		logger.Fatal("Failed to create signed client", zap.Error(err))
	}
	api := dataplane.NewAPI(signed, m)
	collections := controlplane.NewCollections(opensearchserverless.NewFromConfig(awsCfg))

	clk := clock.System{}
	rec := reconcile.New(reconcile.Deps{
		Readiness: readiness.New(collections, clk, config.Duration(cfg.Readiness.IntervalSec)),
		Preflight: preflight.New(api, clk, policy(cfg.Preflight.Backoff, cfg.Preflight.MaxAttempts), m),
		Provisioner: index.New(api, clk, index.Options{
			Policy:         policy(cfg.Provision.Backoff, cfg.Provision.MaxAttempts),
			StrictConflict: cfg.Provision.StrictConflict,
		}, m),
		Stabilizer: stabilize.New(api, clk, stabilize.Options{
			Interval:            config.Duration(cfg.Stabilize.IntervalSec),
			RequiredConsecutive: cfg.Stabilize.RequiredConsecutive,
			MaxWait:             config.Duration(cfg.Stabilize.MaxWaitSec),
			Settle:              config.Duration(cfg.Stabilize.SettleSec),
			QueryProbe:          *cfg.Stabilize.QueryProbe,
			OnTimeout:           stabilize.TimeoutPolicy(cfg.Stabilize.OnTimeout),
		}),
		Clock:   clk,
		Metrics: m,
	}, reconcile.Options{
		ReadinessTimeout:  config.Duration(cfg.Readiness.TimeoutSec),
		PreflightAttempts: cfg.Preflight.MaxAttempts,
	})

	responder := cfnTransport.NewResponder(cfg.Callback.Retries, config.Duration(cfg.Callback.TimeoutSec), logger)
	handler := cfnTransport.NewHandler(
		rec, responder, indexSpec(cfg.Index), config.Duration(cfg.Callback.ReserveSec), logger,
	)

	lambda.Start(handler.Handle)
}

func policy(b config.BackoffConfig, attempts int) retry.Policy {
	return retry.Policy{
		Initial:     config.Millis(b.InitialMs),
		Multiplier:  b.Multiplier,
		Max:         config.Millis(b.MaxMs),
		Jitter:      b.Jitter,
		MaxAttempts: attempts,
	}
}

// indexSpec overlays configured values on the built-in schema defaults.
func indexSpec(c config.IndexConfig) domain.IndexSpec {
	spec := domain.DefaultIndexSpec()
	spec.Dimension = c.Dimension
	spec.SpaceType = c.SpaceType
	spec.Engine = c.Engine
	if c.HNSWM > 0 {
		spec.Parameters.M = c.HNSWM
	}
	if c.HNSWEFConstruction > 0 {
		spec.Parameters.EFConstruction = c.HNSWEFConstruction
	}
	spec.MetadataFields = c.MetadataFields
	return spec
}
