package main

import (
	"context"
	"fmt"
	"io"

	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/history"
	"github.com/comigor/leo-go/internal/llm"
	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/reply"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the transcript backend selected by cfg.Backend.
func openStore(ctx context.Context, cfg config.StorageConfig) (history.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s, err := history.NewS3Store(ctx, history.S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Prefix:   cfg.Prefix,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.L.Info("using s3 history store", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
		return s, nopCloser{}, nil
	case config.StorageSQLite:
		s, err := history.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.L.Info("using sqlite history store", "path", cfg.SQLitePath)
		return s, s, nil
	case config.StorageMemory:
		logger.L.Warn("using in-memory history store; transcripts are lost on restart")
		return history.NewMemoryStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// liveReplies returns the configured assistant backend, or nil when none
// can be reached and the server must start degraded.
func liveReplies(cfg *config.Config) reply.Service {
	switch cfg.LLM.Provider {
	case config.ProviderEndpoint:
		if cfg.LLM.EndpointURL == "" {
			logger.L.Warn("no endpoint_url configured; replies are degraded")
			return nil
		}
		return reply.NewEndpoint(cfg.LLM.EndpointURL, cfg.LLM.Timeout)
	default:
		if cfg.LLM.APIKey == "" {
			logger.L.Warn("no llm.api_key configured; replies are degraded")
			return nil
		}
		return reply.NewOpenAI(llm.NewClient(cfg.LLM), cfg.LLM.Model, cfg.LLM.SystemPrompt)
	}
}
