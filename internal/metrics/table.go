package metrics

import (
	"sort"
	"time"
)

// Table is the aggregate result: one row per resolved username, one column
// per queried reporting date, cell values defaulting to zero. Rows are
// sorted by username and columns are chronological.
type Table struct {
	users  []string
	dates  []time.Time
	counts map[string]map[time.Time]int
}

// NewTable builds an empty table for the given usernames. Rows are fixed
// at construction.
func NewTable(usernames []string) *Table {
	users := make([]string, len(usernames))
	copy(users, usernames)
	sort.Strings(users)

	counts := make(map[string]map[time.Time]int, len(users))
	for _, user := range users {
		counts[user] = make(map[time.Time]int)
	}

	return &Table{users: users, counts: counts}
}

// AddColumn appends one reporting date. Names in the day record that are
// not rows of the table are ignored.
func (t *Table) AddColumn(date time.Time, day map[string]int) {
	t.dates = append(t.dates, date)
	for user, count := range day {
		if row, ok := t.counts[user]; ok {
			row[date] = count
		}
	}
}

// Users returns the row labels in sorted order.
func (t *Table) Users() []string {
	return t.users
}

// Dates returns the column labels in chronological order.
func (t *Table) Dates() []time.Time {
	return t.dates
}

// Count returns the cell value for a user and date, zero when no data was
// returned.
func (t *Table) Count(user string, date time.Time) int {
	return t.counts[user][date]
}

// Row returns one user's counts in column order.
func (t *Table) Row(user string) []int {
	row := make([]int, len(t.dates))
	for i, date := range t.dates {
		row[i] = t.counts[user][date]
	}
	return row
}
