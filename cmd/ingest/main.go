package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/config"
	logpkg "github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/transport/bedrock"
	ingestuc "github.com/kailas-cloud/aossindex/internal/usecase/ingest"
	"github.com/kailas-cloud/aossindex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.ValidateIngest(); err != nil {
		panic("invalid ingest config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "ingest", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ingestion job",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("knowledge_base_id", cfg.Ingest.KnowledgeBaseID),
		zap.String("data_source_id", cfg.Ingest.DataSourceID),
		zap.String("source", "s3://"+cfg.Ingest.Bucket+"/"+cfg.Ingest.Key),
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	source := bedrock.NewS3Source(s3.NewFromConfig(awsCfg), cfg.Ingest.Bucket, cfg.Ingest.Key)
	ingestor := bedrock.NewIngestor(
		bedrockagent.NewFromConfig(awsCfg), cfg.Ingest.KnowledgeBaseID, cfg.Ingest.DataSourceID,
	)
	svc := ingestuc.New(source, ingestor, cfg.Ingest.BatchSize)

	lambda.Start(func(ctx context.Context) (ingestuc.Result, error) {
		fields := []zap.Field{}
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			fields = append(fields, zap.String("request_id", lc.AwsRequestID))
		}
		ctx, log := logpkg.With(ctx, logger, fields...)

		if err := ingestor.HealthCheck(ctx); err != nil {
			log.Warn("knowledge base not ready, ingesting anyway", zap.Error(err))
		}

		res, err := svc.Run(ctx)
		if err != nil {
			log.Error("ingestion failed", zap.Error(err))
			return res, err
		}
		log.Info("ingestion finished", zap.Int("ingested", res.Ingested), zap.Int("total", res.Total))
		return res, nil
	})
}
