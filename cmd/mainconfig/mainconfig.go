package mainconfig

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/internal/llm"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/recordings"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewS3Client honors AWS_ENDPOINT_OVERRIDE with path-style addressing, which
// LocalStack and MinIO need.
func NewS3Client(awsCfg aws.Config, cfg *appconfig.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

func NewBedrockRuntimeClient(awsCfg aws.Config, cfg *appconfig.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewLLMClient builds the extraction provider named by EXTRACTION_PROVIDER.
// The returned close func is never nil.
func NewLLMClient(ctx context.Context, cfg *appconfig.Config) (llm.Client, func(), error) {
	switch cfg.ExtractionProvider {
	case "", "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiInlineLimitBytes)
		if err != nil {
			return nil, func() {}, err
		}
		return client, func() { _ = client.Close() }, nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, func() {}, fmt.Errorf("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, func() {}, fmt.Errorf("load aws config: %w", err)
		}
		return llm.NewBedrockClient(NewBedrockRuntimeClient(awsCfg, cfg), cfg.BedrockModelID), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown EXTRACTION_PROVIDER %q", cfg.ExtractionProvider)
	}
}

// NewRecordingStore returns the local or S3 recording store. A nil fsys means
// the OS filesystem.
func NewRecordingStore(ctx context.Context, cfg *appconfig.Config, fsys afero.Fs) (recordings.Store, error) {
	switch cfg.RecordingStore {
	case "", "local":
		store, err := recordings.NewFileStore(fsys, cfg.RecordingDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		store, err := recordings.NewS3Store(NewS3Client(awsCfg, cfg), cfg.RecordingBucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown RECORDING_STORE %q", cfg.RecordingStore)
	}
}

// NewKintoneClient returns kintone.ErrNotConfigured when the CRM settings are
// incomplete.
func NewKintoneClient(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (*kintone.Client, error) {
	if !cfg.KintoneConfigured() {
		return nil, kintone.ErrNotConfigured
	}
	return kintone.NewClient(kintone.Config{
		BaseURL:        cfg.KintoneBaseURL,
		APIToken:       cfg.KintoneAPIToken,
		ClientAPIToken: cfg.KintoneClientAPIToken,
		AppID:          cfg.KintoneAppID,
		ClientAppID:    cfg.KintoneClientAppID,
		Fields:         master.CRMFields,
		Lookup:         master.ClientLookup,
		Timeout:        cfg.CRMTimeout,
	}, logger)
}

// NewRedisClient returns nil when REDIS_ADDR is empty.
func NewRedisClient(cfg *appconfig.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}
