package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kaartgroup/mrmetrics/internal/config"
	"github.com/kaartgroup/mrmetrics/internal/maproulette"
	"github.com/kaartgroup/mrmetrics/internal/metrics"
	"github.com/kaartgroup/mrmetrics/internal/mrmetrics"
	"github.com/kaartgroup/mrmetrics/internal/report"
)

var (
	userFile   string
	userNames  string
	output     string
	startDate  string
	endDate    string
	metricType string
	overwrite  bool
	csvOutput  string
	jsonOutput string
)

var rootCmd = &cobra.Command{
	Use:   "mrmetrics",
	Short: "Export Maproulette task-completion metrics to a spreadsheet",
	Long:  `mrmetrics fetches daily completed-task counts for a list of users from the Maproulette leaderboard and writes them as a date-by-user table.`,
	Run:   fetchMetrics,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store your Maproulette API key in the OS keychain",
	Run:   setAPIKey,
}

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Resolve usernames to numeric user IDs without fetching metrics",
	Run:   resolveIDs,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(setKeyCmd)
	rootCmd.AddCommand(idsCmd)

	rootCmd.Flags().StringVarP(&userFile, "userfile", "f", "", "Path to a text file with one username per line")
	rootCmd.Flags().StringVarP(&userNames, "user", "u", "", "Comma-separated usernames to check")
	rootCmd.Flags().StringVarP(&output, "output", "o", "metrics.xlsx", "Where to save the spreadsheet")
	rootCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (YYYY-MM-DD), defaults to today")
	rootCmd.Flags().StringVar(&metricType, "metric-type", "editor", "Which metrics to get: editor or qc")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing output file without asking")
	rootCmd.Flags().StringVar(&csvOutput, "csv", "", "Also write the table as CSV to this path")
	rootCmd.Flags().StringVar(&jsonOutput, "json", "", "Also write the table as JSON to this path")

	idsCmd.Flags().StringVarP(&userFile, "userfile", "f", "", "Path to a text file with one username per line")
	idsCmd.Flags().StringVarP(&userNames, "user", "u", "", "Comma-separated usernames to check")
}

func gatherUsers() ([]string, error) {
	if userFile != "" {
		return readUserFile(userFile)
	}
	if users := parseCommaList(userNames); len(users) > 0 {
		return users, nil
	}
	return nil, fmt.Errorf("no usernames given (use --userfile or --user)")
}

func fetchMetrics(cmd *cobra.Command, args []string) {
	users, err := gatherUsers()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	if startDate == "" {
		fmt.Fprintln(os.Stderr, "Start date is required. Use --start flag")
		return
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid start date: %v\n", err)
		return
	}

	end := time.Now()
	if endDate != "" {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid end date: %v\n", err)
			return
		}
	}

	kind, err := maproulette.ParseMetricKind(metricType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	destination := report.FixPath(output)
	if _, err := os.Stat(destination); err == nil && !overwrite {
		if !confirmOverwrite(destination) {
			fmt.Println("Save aborted.")
			return
		}
	}

	app, err := mrmetrics.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Fetching %s metrics for %d users (%s to %s)\n",
		kind, len(users), start.Format("2006-01-02"), end.Format("2006-01-02"))

	table, err := watchProgress(ctx, app, users, start, end, kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to fetch metrics: %v\n", err)
		return
	}

	if err := app.Export(table, report.NewExcelExporter(), destination); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save spreadsheet: %v\n", err)
		return
	}
	fmt.Printf("Saved %s\n", destination)

	if csvOutput != "" {
		if err := app.Export(table, report.NewCSVExporter(), csvOutput); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save CSV: %v\n", err)
		} else {
			fmt.Printf("Saved %s\n", csvOutput)
		}
	}

	if jsonOutput != "" {
		if err := app.Export(table, report.NewJSONExporter(), jsonOutput); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save JSON: %v\n", err)
		} else {
			fmt.Printf("Saved %s\n", jsonOutput)
		}
	}

	printSummary(table, app.Aggregator.Progress().Snapshot())
}

type fetchResult struct {
	table *metrics.Table
	err   error
}

// watchProgress runs the aggregation on a background goroutine while the
// progress bar polls its counters.
func watchProgress(ctx context.Context, app *mrmetrics.Application, users []string, start, end time.Time, kind maproulette.MetricKind) (*metrics.Table, error) {
	results := make(chan fetchResult, 1)
	go func() {
		table, err := app.FetchMetrics(ctx, users, start, end, kind)
		results <- fetchResult{table: table, err: err}
	}()

	bar := newFetchBar()
	defer finishBar(bar)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case result := <-results:
			renderProgress(bar, app.Aggregator.Progress().Snapshot())
			return result.table, result.err
		case <-ticker.C:
			renderProgress(bar, app.Aggregator.Progress().Snapshot())
		}
	}
}

func printSummary(table *metrics.Table, snap metrics.Snapshot) {
	total := 0
	for _, user := range table.Users() {
		for _, count := range table.Row(user) {
			total += count
		}
	}

	p := message.NewPrinter(language.English)
	fmt.Println("\nSummary:")
	p.Printf("  Users: %d\n", len(table.Users()))
	p.Printf("  Reporting days: %d\n", len(table.Dates()))
	p.Printf("  Total completed tasks: %d\n", total)
	if snap.SkippedPages > 0 {
		p.Printf("  Skipped pages (zero-filled): %d\n", snap.SkippedPages)
	}
}

func setAPIKey(cmd *cobra.Command, args []string) {
	fmt.Print("Paste your Maproulette API key (your input will be invisible, this is normal): ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read key: %v\n", err)
		return
	}

	trimmed := strings.TrimSpace(string(key))
	if trimmed == "" {
		fmt.Fprintln(os.Stderr, "No key was pasted.")
		return
	}

	if err := config.StoreAPIKey(trimmed); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store key: %v\n", err)
		return
	}
	fmt.Println("API key successfully set!")
}

func resolveIDs(cmd *cobra.Command, args []string) {
	users, err := gatherUsers()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	app, err := mrmetrics.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ids, err := app.Resolver.Resolve(ctx, users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve IDs: %v\n", err)
		return
	}

	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s\t%s\n", name, ids[name])
	}
	if len(names) < len(users) {
		fmt.Fprintf(os.Stderr, "%d of %d usernames could not be resolved\n",
			len(users)-len(names), len(users))
	}
}
