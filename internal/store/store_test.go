package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aiusage/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func results(util float64) []model.Result {
	reset := time.Date(2025, 10, 19, 15, 0, 0, 0, time.UTC)
	return []model.Result{
		{
			Provider: "claude",
			Usage: &model.ServiceUsageData{
				Service: model.ServiceClaude,
				Windows: []model.UsageWindow{
					{Name: "5-Hour Usage", Utilization: util, ResetsAt: &reset, PeriodDuration: 5 * time.Hour},
					{Name: "7-Day Usage", Utilization: util / 2, PeriodDuration: 7 * 24 * time.Hour},
				},
			},
		},
		{
			Provider: "codex",
			Usage: &model.ServiceUsageData{
				Service:  model.ServiceChatGPT,
				PlanType: "plus",
				Windows:  []model.UsageWindow{{Name: "Primary Window (~5 hours)", Utilization: util}},
			},
		},
		{Provider: "gemini", Err: errors.New("down")},
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestInsertSnapshot_SkipsFailures(t *testing.T) {
	s := newTestStore(t)

	n, err := s.InsertSnapshot(context.Background(), time.Now(), results(40))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLatestSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)

	_, err := s.InsertSnapshot(ctx, first, results(10))
	require.NoError(t, err)
	_, err = s.InsertSnapshot(ctx, first.Add(5*time.Minute), results(20))
	require.NoError(t, err)

	latest, err := s.LatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 3)

	assert.Equal(t, "claude", latest[0].Provider)
	assert.Equal(t, "5-Hour Usage", latest[0].Window)
	assert.Equal(t, 20.0, latest[0].Utilization)
	assert.Equal(t, first.Add(5*time.Minute), latest[0].CapturedAt)
	require.NotNil(t, latest[0].ResetsAt)
	assert.Equal(t, time.Date(2025, 10, 19, 15, 0, 0, 0, time.UTC), *latest[0].ResetsAt)
	assert.Equal(t, 5*time.Hour, latest[0].Period)

	assert.Equal(t, "7-Day Usage", latest[1].Window)
	assert.Nil(t, latest[1].ResetsAt)

	assert.Equal(t, "codex", latest[2].Provider)
	assert.Equal(t, model.ServiceChatGPT, latest[2].Service)
	assert.Equal(t, "plus", latest[2].PlanType)
}

func TestHistoryAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	for day := 0; day < 3; day++ {
		_, err := s.InsertSnapshot(ctx, base.AddDate(0, 0, day), results(float64(day*10)))
		require.NoError(t, err)
	}

	hist, err := s.History(ctx, "codex", base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 10.0, hist[0].Utilization)
	assert.Equal(t, 20.0, hist[1].Utilization)

	deleted, err := s.Prune(ctx, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(6), deleted)

	hist, err = s.History(ctx, "claude", base)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestLatestSnapshots_Empty(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.LatestSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, latest)
}
