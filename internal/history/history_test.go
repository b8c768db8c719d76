package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, fam := range []string{"naive_bayes", "linear_svm", "random_forest"} {
		require.NoError(t, s.Record(ctx, Run{
			ID:           fam,
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			Duration:     1500 * time.Millisecond,
			Dataset:      "articles.csv",
			RowsTotal:    100,
			RowsUsed:     97,
			RowsExcluded: 3,
			LabelPolicy:  "first",
			Scoring:      "accuracy",
			Seed:         42,
			Family:       fam,
			Params:       "alpha=1",
			CVScore:      0.8 + float64(i)/100,
			TestAccuracy: 0.79,
			TestMacroF1:  0.7,
			BundlePath:   "out/model.json",
		}))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "random_forest", runs[0].ID)
	assert.Equal(t, "linear_svm", runs[1].ID)
	assert.Equal(t, base.Add(2*time.Hour), runs[0].StartedAt)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.Equal(t, uint64(42), runs[0].Seed)
	assert.Equal(t, 3, runs[0].RowsExcluded)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Run{ID: "a", StartedAt: time.Now(), Family: "naive_bayes"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	assert.Error(t, s.Record(ctx, Run{ID: "a", StartedAt: time.Now()}), "duplicate id")
}

func TestListOrdersWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Run{ID: "earlier", StartedAt: base.Add(123456789 * time.Nanosecond)}))
	require.NoError(t, s.Record(ctx, Run{ID: "later", StartedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, s.Record(ctx, Run{ID: "first", StartedAt: base}))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"later", "earlier", "first"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.True(t, runs[0].StartedAt.Equal(base.Add(500*time.Millisecond)))
}
