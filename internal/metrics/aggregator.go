package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kaartgroup/mrmetrics/internal/maproulette"
)

// PageFetcher fetches completed-task counts for one page of user IDs over
// a date window.
type PageFetcher interface {
	Leaderboard(ctx context.Context, kind maproulette.MetricKind, ids []string, window maproulette.Window) (map[string]int, error)
}

// Aggregator drives the day-by-day, page-by-page fetch loop and assembles
// the result table.
type Aggregator struct {
	resolver *Resolver
	fetcher  PageFetcher
	progress *Progress
	logger   *slog.Logger
}

func NewAggregator(resolver *Resolver, fetcher PageFetcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		resolver: resolver,
		fetcher:  fetcher,
		progress: &Progress{},
		logger:   logger,
	}
}

// Progress exposes the run's counters for a polling observer.
func (a *Aggregator) Progress() *Progress {
	return a.progress
}

// Aggregate resolves the usernames and fetches their daily completed-task
// counts from start to end inclusive. Weekend dates produce no column:
// their activity is folded into the adjacent Monday or Friday query window
// to compensate for the server's timezone offset. A failed page drops that
// page's contribution for that date and the run continues; cancellation is
// honored between requests.
func (a *Aggregator) Aggregate(ctx context.Context, usernames []string, start, end time.Time, kind maproulette.MetricKind) (*Table, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	ids, err := a.resolver.Resolve(ctx, usernames)
	if err != nil {
		return nil, err
	}

	// Fixed fetch order: pages are cut from the ID list in sorted-username
	// order so runs are reproducible given a stable cache.
	users := make([]string, 0, len(ids))
	for user := range ids {
		users = append(users, user)
	}
	sort.Strings(users)

	idList := make([]string, len(users))
	for i, user := range users {
		idList[i] = ids[user]
	}

	pageCount := (len(idList) + maproulette.PageLimit - 1) / maproulette.PageLimit
	totalSteps := businessDays(start, end) * pageCount
	a.progress.start(totalSteps, pageCount)

	table := NewTable(users)

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		window, skip := queryWindow(date)
		if skip {
			continue
		}

		day := make(map[string]int)
		for page := 0; page*maproulette.PageLimit < len(idList); page++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			a.progress.beginPage(date, page)

			lo := page * maproulette.PageLimit
			hi := min(lo+maproulette.PageLimit, len(idList))

			counts, err := a.fetcher.Leaderboard(ctx, kind, idList[lo:hi], window)
			if err != nil {
				a.progress.skipPage()
				a.logger.Warn("leaderboard page failed, skipping",
					"date", date.Format("2006-01-02"), "page", page, "error", err)
				continue
			}

			for name, count := range counts {
				day[name] = count
			}
		}

		table.AddColumn(date, day)
	}

	a.progress.finish()
	return table, nil
}

// queryWindow applies the weekend and boundary adjustment rules for one
// reporting date. Saturdays and Sundays are skipped outright; a Monday
// window starts a day early and a Friday window ends a day late so the
// weekend's activity lands on the adjacent weekday.
func queryWindow(date time.Time) (window maproulette.Window, skip bool) {
	window = maproulette.Window{Start: date, End: date}

	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return maproulette.Window{}, true
	case time.Monday:
		window.Start = date.AddDate(0, 0, -1)
	case time.Friday:
		window.End = date.AddDate(0, 0, 1)
	}

	return window, false
}

// businessDays counts the weekdays from start to end inclusive.
func businessDays(start, end time.Time) int {
	days := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if wd := date.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
