package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

// parseCommaList splits a comma-separated string and trims whitespace
func parseCommaList(input string) []string {
	if input == "" {
		return []string{}
	}

	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// readUserFile loads usernames from a text file, one per line.
func readUserFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}

	seen := make(map[string]bool)
	var users []string
	for _, line := range strings.Split(string(data), "\n") {
		user := strings.TrimSpace(line)
		if user == "" || seen[user] {
			continue
		}
		seen[user] = true
		users = append(users, user)
	}
	return users, nil
}

// confirmOverwrite asks before clobbering an existing file.
func confirmOverwrite(path string) bool {
	fmt.Printf("%s exists. Do you want to overwrite? N/y: ", path)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "y")
}

func newFetchBar() *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Fetching metrics"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func renderProgress(bar *progressbar.ProgressBar, snap metrics.Snapshot) {
	if snap.TotalSteps > 0 && bar.GetMax() != snap.TotalSteps {
		bar.ChangeMax(snap.TotalSteps)
	}
	if snap.PageCount > 0 && !snap.Date.IsZero() {
		bar.Describe(fmt.Sprintf("Page %d of %d for %s",
			snap.Page+1, snap.PageCount, snap.Date.Format("Jan 2")))
	}
	_ = bar.Set(snap.Step)
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
}
