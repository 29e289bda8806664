package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weather-history/internal/archive"
	"weather-history/internal/models"
	"weather-history/internal/reports"
)

var reportCmd = &cobra.Command{
	Use:   "report <alias> <start> [end]",
	Short: "Report daily history for a location",
	Long: `Report the stored daily weather history for a location over a date range.
Dates are formatted YYYY-MM-DD; a missing end date reports a single day.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runReport,
}

var reportFormat string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Output format (text, csv, json)")
}

// parseRangeArgs builds an inclusive date range from start and optional end
// arguments.
func parseRangeArgs(args []string) (models.DateRange, error) {
	start, err := models.ParseDate(args[0])
	if err != nil {
		return models.DateRange{}, fmt.Errorf("start date: %w", err)
	}
	end := start
	if len(args) > 1 {
		end, err = models.ParseDate(args[1])
		if err != nil {
			return models.DateRange{}, fmt.Errorf("end date: %w", err)
		}
	}
	dateRange := models.NewDateRange(start, end)
	if !dateRange.Valid() {
		return models.DateRange{}, fmt.Errorf("end date %s precedes start date %s",
			models.FormatDate(end), models.FormatDate(start))
	}
	return dateRange, nil
}

// catalogLocation finds the cataloged location with the alias.
func catalogLocation(a *app, alias string) (models.Location, error) {
	cataloged, err := a.store.Get()
	if err != nil {
		return models.Location{}, err
	}
	for _, location := range cataloged {
		if location.Alias == alias {
			return location, nil
		}
	}
	return models.Location{}, &models.NotFoundError{Resource: "location", ID: alias}
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := reports.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	dateRange, err := parseRangeArgs(args[1:])
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	location, err := catalogLocation(a, args[0])
	if err != nil {
		return err
	}

	history, err := archive.Open(location.Alias, a.dir.ArchivePath(location.Alias), a.logger)
	if err != nil {
		return err
	}
	cursor, err := history.Histories(dateRange)
	if err != nil {
		return err
	}
	defer cursor.Close()

	daily := models.DailyHistories{Location: location}
	for cursor.Next() {
		daily.Histories = append(daily.Histories, cursor.History())
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	return reports.Histories(os.Stdout, format, daily)
}
