package metrics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/kaartgroup/mrmetrics/internal/maproulette"
	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

type pageRequest struct {
	kind   maproulette.MetricKind
	ids    []string
	window maproulette.Window
}

type fakeFetcher struct {
	requests []pageRequest
	respond  func(req pageRequest) (map[string]int, error)
}

func (f *fakeFetcher) Leaderboard(ctx context.Context, kind maproulette.MetricKind, ids []string, window maproulette.Window) (map[string]int, error) {
	req := pageRequest{kind: kind, ids: ids, window: window}
	f.requests = append(f.requests, req)
	if f.respond == nil {
		return map[string]int{}, nil
	}
	return f.respond(req)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newAggregator(cached map[string]string, fetcher *fakeFetcher) *metrics.Aggregator {
	resolver := metrics.NewResolver(&fakeStore{data: cached}, &fakeFinder{}, nil)
	return metrics.NewAggregator(resolver, fetcher, nil)
}

func TestAggregate_WeekendsProduceNoColumns(t *testing.T) {
	fetcher := &fakeFetcher{}
	agg := newAggregator(map[string]string{"alice": "101"}, fetcher)

	// Friday 2024-01-05 through Monday 2024-01-08.
	table, err := agg.Aggregate(context.Background(), []string{"alice"},
		day(2024, time.January, 5), day(2024, time.January, 8), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, table.Dates()).Equal([]time.Time{
		day(2024, time.January, 5),
		day(2024, time.January, 8),
	})
	gt.Array(t, fetcher.requests).Length(2)
}

func TestAggregate_BoundaryAdjustment(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "Monday absorbs prior Sunday",
			date:      day(2024, time.January, 8),
			wantStart: day(2024, time.January, 7),
			wantEnd:   day(2024, time.January, 8),
		},
		{
			name:      "Friday absorbs following Saturday",
			date:      day(2024, time.January, 5),
			wantStart: day(2024, time.January, 5),
			wantEnd:   day(2024, time.January, 6),
		},
		{
			name:      "midweek day unchanged",
			date:      day(2024, time.January, 3),
			wantStart: day(2024, time.January, 3),
			wantEnd:   day(2024, time.January, 3),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{}
			agg := newAggregator(map[string]string{"alice": "101"}, fetcher)

			_, err := agg.Aggregate(context.Background(), []string{"alice"},
				tc.date, tc.date, maproulette.MetricEditor)
			gt.NoError(t, err).Required()

			gt.Array(t, fetcher.requests).Length(1)
			gt.Value(t, fetcher.requests[0].window.Start).Equal(tc.wantStart)
			gt.Value(t, fetcher.requests[0].window.End).Equal(tc.wantEnd)
		})
	}
}

func TestAggregate_PagePartitioning(t *testing.T) {
	cached := make(map[string]string, 120)
	for i := 1; i <= 120; i++ {
		cached[fmt.Sprintf("user%03d", i)] = fmt.Sprintf("id%03d", i)
	}

	fetcher := &fakeFetcher{}
	agg := newAggregator(cached, fetcher)

	users := make([]string, 0, len(cached))
	for user := range cached {
		users = append(users, user)
	}

	// One business day, 120 IDs: exactly ceil(120/50) = 3 pages.
	_, err := agg.Aggregate(context.Background(), users,
		day(2024, time.January, 3), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, fetcher.requests).Length(3)
	gt.Value(t, fetcher.requests[0].kind).Equal(maproulette.MetricEditor)
	gt.Array(t, fetcher.requests[0].ids).Length(50)
	gt.Array(t, fetcher.requests[1].ids).Length(50)
	gt.Array(t, fetcher.requests[2].ids).Length(20)

	// Pages are cut in sorted-username order.
	gt.Value(t, fetcher.requests[0].ids[0]).Equal("id001")
	gt.Value(t, fetcher.requests[2].ids[19]).Equal("id120")

	snap := agg.Progress().Snapshot()
	gt.Value(t, snap.TotalSteps).Equal(3)
	gt.Value(t, snap.Step).Equal(3)
	gt.Bool(t, snap.Done).True()
}

func TestAggregate_TwoDayScenario(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(req pageRequest) (map[string]int, error) {
			if req.window.Start.Equal(day(2024, time.January, 2)) {
				return map[string]int{"alice": 3}, nil
			}
			return map[string]int{}, nil
		},
	}
	agg := newAggregator(map[string]string{"alice": "101", "bob": "102"}, fetcher)

	table, err := agg.Aggregate(context.Background(), []string{"alice", "bob"},
		day(2024, time.January, 2), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, table.Users()).Equal([]string{"alice", "bob"})
	gt.Array(t, table.Dates()).Equal([]time.Time{
		day(2024, time.January, 2),
		day(2024, time.January, 3),
	})
	gt.Array(t, table.Row("alice")).Equal([]int{3, 0})
	gt.Array(t, table.Row("bob")).Equal([]int{0, 0})
}

func TestAggregate_RowsSortedRegardlessOfResponseOrder(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(req pageRequest) (map[string]int, error) {
			return map[string]int{"zoe": 5, "adam": 1}, nil
		},
	}
	agg := newAggregator(map[string]string{"zoe": "201", "adam": "202"}, fetcher)

	table, err := agg.Aggregate(context.Background(), []string{"zoe", "adam"},
		day(2024, time.January, 3), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, table.Users()).Equal([]string{"adam", "zoe"})
}

func TestAggregate_FailedPageYieldsZeroColumn(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(req pageRequest) (map[string]int, error) {
			if req.window.Start.Equal(day(2024, time.January, 2)) {
				return nil, &maproulette.RequestError{Status: 502}
			}
			return map[string]int{"alice": 7}, nil
		},
	}
	agg := newAggregator(map[string]string{"alice": "101"}, fetcher)

	table, err := agg.Aggregate(context.Background(), []string{"alice"},
		day(2024, time.January, 2), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, table.Row("alice")).Equal([]int{0, 7})
	gt.Value(t, agg.Progress().Snapshot().SkippedPages).Equal(1)
}

func TestAggregate_UnresolvedNamesInResponseIgnored(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(req pageRequest) (map[string]int, error) {
			return map[string]int{"alice": 2, "stranger": 9}, nil
		},
	}
	agg := newAggregator(map[string]string{"alice": "101"}, fetcher)

	table, err := agg.Aggregate(context.Background(), []string{"alice"},
		day(2024, time.January, 3), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.NoError(t, err).Required()

	gt.Array(t, table.Users()).Equal([]string{"alice"})
	gt.Value(t, table.Count("alice", day(2024, time.January, 3))).Equal(2)
}

func TestAggregate_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	agg := newAggregator(map[string]string{"alice": "101"}, fetcher)

	_, err := agg.Aggregate(ctx, []string{"alice"},
		day(2024, time.January, 3), day(2024, time.January, 3), maproulette.MetricEditor)
	gt.Error(t, err)
	gt.Array(t, fetcher.requests).Length(0)
}

func TestAggregate_EndBeforeStart(t *testing.T) {
	agg := newAggregator(map[string]string{"alice": "101"}, &fakeFetcher{})

	_, err := agg.Aggregate(context.Background(), []string{"alice"},
		day(2024, time.January, 3), day(2024, time.January, 2), maproulette.MetricEditor)
	gt.Error(t, err)
}
