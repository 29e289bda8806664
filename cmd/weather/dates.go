package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"weather-history/internal/archive"
	"weather-history/internal/models"
	"weather-history/internal/reports"
)

var datesCmd = &cobra.Command{
	Use:   "dates [pattern]...",
	Short: "List stored history dates",
	Long: `List the history dates stored in each matching location archive, collapsed
into contiguous ranges.`,
	RunE: runDates,
}

var datesFormat string

func init() {
	rootCmd.AddCommand(datesCmd)
	datesCmd.Flags().StringVar(&listCity, "city", "", "Filter by city pattern")
	datesCmd.Flags().StringVar(&listState, "state", "", "Filter by state name or abbreviation pattern")
	datesCmd.Flags().StringVarP(&datesFormat, "format", "f", "text", "Output format (text, csv, json)")
}

func runDates(cmd *cobra.Command, args []string) error {
	format, err := reports.ParseFormat(datesFormat)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.store.Find(buildFilters(args))
	if err != nil {
		return err
	}

	dates := make([]models.HistoryDates, 0, len(found))
	for _, location := range found {
		ranges, err := archiveDates(a, location)
		if err != nil {
			return err
		}
		dates = append(dates, models.HistoryDates{Location: location, Ranges: ranges})
	}
	return reports.Dates(os.Stdout, format, dates)
}

// archiveDates reads a location's collapsed date ranges. A missing archive
// reports no dates rather than an error.
func archiveDates(a *app, location models.Location) ([]models.DateRange, error) {
	history, err := archive.Open(location.Alias, a.dir.ArchivePath(location.Alias), a.logger)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	ranges, err := history.Dates(nil)
	if err != nil {
		return nil, err
	}
	return ranges.Ranges, nil
}
