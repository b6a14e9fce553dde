package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbdrill/internal/model"
)

func testPlan(board string, at time.Time, drillHits int) model.Plan {
	var route model.RouteVector
	route.AddSegment(model.Point{X: 0, Y: 0}, model.Point{X: 4000, Y: 0})

	plan := model.NewPlan(board, model.DrillAndRouteAll)
	plan.CreatedAt = at
	plan.RackCapacity = 10
	plan.Travel = 5000
	points := make([]model.Point, drillHits)
	for i := range points {
		points[i] = model.Point{X: i * 1000}
	}
	plan.Assignment.Tools = []model.ToolPath{
		{Bit: model.DrillBit(800), Slot: 1, Points: points},
		{Bit: model.RouterBit(1000), Slot: 2, Routes: []model.RouteVector{route}},
	}
	return plan
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "wear.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordPlanAndBitWear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	require.NoError(t, s.RecordPlan(ctx, testPlan("a", first, 3)))
	require.NoError(t, s.RecordPlan(ctx, testPlan("b", second, 5)))

	wear, err := s.BitWear(ctx)
	require.NoError(t, err)
	require.Len(t, wear, 2)

	assert.Equal(t, model.DrillBit(800), wear[0].Bit)
	assert.Equal(t, 2, wear[0].Runs)
	assert.Equal(t, 8, wear[0].Hits)
	assert.Zero(t, wear[0].Routed)
	assert.True(t, wear[0].LastUsed.Equal(second))

	assert.Equal(t, model.RouterBit(1000), wear[1].Bit)
	assert.Equal(t, 2, wear[1].Hits)
	assert.InDelta(t, 8000, wear[1].Routed, 1e-9)
}

func TestRecordPlan_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plan := testPlan("a", time.Now().UTC(), 1)
	require.NoError(t, s.RecordPlan(ctx, plan))
	assert.Error(t, s.RecordPlan(ctx, plan))

	// The failed insert left nothing behind
	wear, err := s.BitWear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, wear[0].Runs)
}

func TestRecordPlan_EmptyPlan(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordPlan(ctx, model.NewPlan("empty", model.DrillAll)))
	wear, err := s.BitWear(ctx)
	require.NoError(t, err)
	assert.Empty(t, wear)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, board := range []string{"a", "b", "c"} {
		require.NoError(t, s.RecordPlan(ctx, testPlan(board, base.Add(time.Duration(i)*time.Hour), 2)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Board)
	assert.Equal(t, "b", runs[1].Board)
	assert.Equal(t, 2, runs[0].Tools)
	assert.Equal(t, 3, runs[0].Hits)
	assert.InDelta(t, 5000, runs[0].Travel, 1e-9)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wear.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordPlan(ctx, testPlan("a", time.Now().UTC(), 4)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	wear, err := s.BitWear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, wear[0].Hits)
}
