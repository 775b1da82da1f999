// Package clientsearch serves customer lookups from Kintone through a Redis
// cache.
package clientsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/width"

	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

const (
	keyPrefix  = "clientsearch:v1:"
	defaultTTL = 10 * time.Minute
)

// Searcher queries the CRM customer app.
type Searcher interface {
	SearchClients(ctx context.Context, keyword string) ([]kintone.ClientSummary, error)
}

// Service caches search results per normalized keyword. A nil Redis client
// disables caching.
type Service struct {
	searcher Searcher
	redis    *redis.Client
	ttl      time.Duration
	logger   *logging.Logger
}

func NewService(searcher Searcher, client *redis.Client, ttl time.Duration, logger *logging.Logger) *Service {
	if searcher == nil {
		panic("clientsearch: searcher required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{searcher: searcher, redis: client, ttl: ttl, logger: logger}
}

// Normalize folds width variants and trims, so "ﾐﾅﾄ" and "ミナト " share a
// cache entry.
func Normalize(keyword string) string {
	return strings.TrimSpace(width.Fold.String(keyword))
}

func (s *Service) key(keyword string) string {
	return keyPrefix + strings.ToLower(keyword)
}

// Search returns customers matching keyword. Cache failures are logged and
// fall through to the CRM.
func (s *Service) Search(ctx context.Context, keyword string) ([]kintone.ClientSummary, error) {
	keyword = Normalize(keyword)
	if keyword == "" {
		return []kintone.ClientSummary{}, nil
	}

	if cached, ok := s.get(ctx, keyword); ok {
		return cached, nil
	}

	results, err := s.searcher.SearchClients(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("clientsearch: %w", err)
	}
	s.set(ctx, keyword, results)
	return results, nil
}

func (s *Service) get(ctx context.Context, keyword string) ([]kintone.ClientSummary, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, s.key(keyword)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("client search cache get failed", "error", err)
		return nil, false
	}
	var out []kintone.ClientSummary
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("client search cache entry unreadable", "error", err)
		return nil, false
	}
	return out, true
}

func (s *Service) set(ctx context.Context, keyword string, results []kintone.ClientSummary) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.key(keyword), data, s.ttl).Err(); err != nil {
		s.logger.Warn("client search cache set failed", "error", err)
	}
}
