package clientsearch

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

type fakeSearcher struct {
	calls   []string
	results []kintone.ClientSummary
	err     error
}

func (f *fakeSearcher) SearchClients(_ context.Context, keyword string) ([]kintone.ClientSummary, error) {
	f.calls = append(f.calls, keyword)
	return f.results, f.err
}

func TestService_CachesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	searcher := &fakeSearcher{results: []kintone.ClientSummary{{ID: "C-001", RecordID: "7", Name: "ミナト商事"}}}
	svc := NewService(searcher, rdb, time.Minute, logging.Discard())

	first, err := svc.Search(context.Background(), "ﾐﾅﾄ")
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), " ミナト ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"ミナト"}, searcher.calls)
	assert.True(t, mr.Exists(keyPrefix+"ミナト"))

	mr.FastForward(2 * time.Minute)
	_, err = svc.Search(context.Background(), "ミナト")
	require.NoError(t, err)
	assert.Len(t, searcher.calls, 2)
}

func TestService_EmptyKeyword(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewService(searcher, nil, 0, logging.Discard())

	got, err := svc.Search(context.Background(), "　")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, searcher.calls)
}

func TestService_UpstreamErrorNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	searcher := &fakeSearcher{err: errors.New("503")}
	svc := NewService(searcher, rdb, time.Minute, logging.Discard())

	_, err := svc.Search(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, mr.Exists(keyPrefix+"abc"))
}

func TestService_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	searcher := &fakeSearcher{results: []kintone.ClientSummary{{ID: "C-9"}}}
	svc := NewService(searcher, rdb, time.Minute, logging.Discard())

	got, err := svc.Search(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "C-9", got[0].ID)
}
