// Command replay backfills the document ledger from a bucket's current
// contents. It lists every object and pushes a synthetic created-object
// event through the same dispatch path the worker uses; the workflow's
// lookup-before-create makes repeated runs safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-ingest/internal/replay"
	"github.com/tendant/simple-ingest/pkg/simpleingest"
	"github.com/tendant/simple-ingest/pkg/simpleingest/ledger"
)

type Config struct {
	S3     S3Config
	Ledger LedgerConfig
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"documents"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
}

type LedgerConfig struct {
	Target      string `env:"LEDGER_GRPC_TARGET" env-default:"app:50061"`
	TimeoutSec  int    `env:"LEDGER_GRPC_TIMEOUT_SEC" env-default:"3"`
	TLSRootCert string `env:"LEDGER_GRPC_TLS_ROOT_CERT" env-default:""`
}

func newS3Client(ctx context.Context, config S3Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			// MinIO and other S3-compatible endpoints
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		}
	}), nil
}

func main() {
	prefix := flag.String("prefix", "", "only replay objects under this key prefix")
	dryRun := flag.Bool("dry-run", false, "list and count objects without dispatching")
	pageSize := flag.Int("page-size", 0, "ListObjectsV2 page size (0 uses the S3 default)")
	flag.Parse()

	_ = godotenv.Load()

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s3Client, err := newS3Client(ctx, config.S3)
	if err != nil {
		logger.Error("Failed to create S3 client", "err", err)
		os.Exit(1)
	}

	ledgerClient, err := ledger.NewGrpcClient(ledger.GrpcConfig{
		Target:      config.Ledger.Target,
		Timeout:     time.Duration(config.Ledger.TimeoutSec) * time.Second,
		TLSRootCert: config.Ledger.TLSRootCert,
	})
	if err != nil {
		logger.Error("Failed to create ledger client", "err", err)
		os.Exit(1)
	}
	defer ledgerClient.Close()

	workflow, err := simpleingest.NewDocumentWorkflow(ledgerClient,
		simpleingest.WithWorkflowLogger(logger),
		simpleingest.WithFallbackBucket(config.S3.BucketName))
	if err != nil {
		logger.Error("Failed to create document workflow", "err", err)
		os.Exit(1)
	}

	registry := simpleingest.NewRegistry()
	if err := registry.Register(workflow.HandleObjectCreated, simpleingest.EventObjectCreatedPut); err != nil {
		logger.Error("Failed to register handlers", "err", err)
		os.Exit(1)
	}
	dispatcher := simpleingest.NewDispatcher(registry, simpleingest.WithLogger(logger))

	runner, err := replay.New(s3Client, func(ctx context.Context, raw map[string]any) error {
		return dispatcher.Dispatch(ctx, simpleingest.ParseEvent(raw), raw)
	}, logger)
	if err != nil {
		logger.Error("Failed to create replay runner", "err", err)
		os.Exit(1)
	}

	result, err := runner.Run(ctx, replay.Options{
		Bucket:   config.S3.BucketName,
		Prefix:   *prefix,
		PageSize: int32(*pageSize),
		DryRun:   *dryRun,
	})
	if err != nil {
		logger.Error("Replay failed",
			"err", err,
			"scanned", result.Scanned,
			"dispatched", result.Dispatched,
			"failed", result.Failed)
		os.Exit(1)
	}

	logger.Info("Replay complete",
		"scanned", result.Scanned,
		"dispatched", result.Dispatched,
		"failed", result.Failed)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
