package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/config"
	logpkg "github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	apigwTransport "github.com/kailas-cloud/aossindex/internal/transport/apigw"
	"github.com/kailas-cloud/aossindex/internal/transport/bedrock"
	chiTransport "github.com/kailas-cloud/aossindex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/aossindex/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/aossindex/internal/usecase/retrieval"
	"github.com/kailas-cloud/aossindex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.ValidateRetrieval(); err != nil {
		panic("invalid retrieval config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "retrieval", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retrieval",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("knowledge_base_id", cfg.Retrieval.KnowledgeBaseID),
		zap.Int("top_k", cfg.Retrieval.TopK),
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	retriever := bedrock.NewRetriever(bedrockagentruntime.NewFromConfig(awsCfg), cfg.Retrieval.KnowledgeBaseID)
	svc := retrievaluc.New(retriever, retrievaluc.Options{
		TopK:         cfg.Retrieval.TopK,
		PreviewChars: cfg.Retrieval.PreviewChars,
		MaxPreviews:  cfg.Retrieval.MaxPreviews,
	})

	if env != "local" {
		lambda.Start(apigwTransport.NewHandler(svc, m, logger).Handle)
		return
	}

	healthSvc := healthuc.New(
		bedrock.NewChecker(bedrockagent.NewFromConfig(awsCfg), cfg.Retrieval.KnowledgeBaseID),
		newCredentialsChecker(awsCfg.Credentials),
	)
	server := chiTransport.NewServer(svc, healthSvc, m, prometheus.DefaultGatherer, logger)

	addr := fmt.Sprintf(":%d", cfg.Retrieval.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(cfg.Retrieval.APIKeys),
		ReadHeaderTimeout: config.Duration(cfg.Retrieval.ShutdownSec),
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Retrieval.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// credentialsChecker wraps aws.CredentialsProvider to implement health.CredentialsChecker.
type credentialsChecker struct {
	provider aws.CredentialsProvider
}

func newCredentialsChecker(provider aws.CredentialsProvider) *credentialsChecker {
	return &credentialsChecker{provider: provider}
}

func (c *credentialsChecker) HealthCheck(ctx context.Context) error {
	if c.provider == nil {
		return errors.New("no credentials provider")
	}
	creds, err := c.provider.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	if creds.Expired() {
		return errors.New("credentials expired")
	}
	return nil
}
