package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"weather-history/internal/archive"
	"weather-history/internal/client"
	"weather-history/internal/models"
	"weather-history/pkg/logging"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <alias> <start> [end]",
	Short: "Fetch history from the weather provider",
	Long: `Fetch daily weather history for a location from the provider and append it
to the location archive. Dates already stored are left untouched. The index is
not updated; run "weather db reload" to sync it.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	dateRange, err := parseRangeArgs(args[1:])
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Provider.APIKey == "" {
		return fmt.Errorf("no provider API key configured")
	}

	location, err := catalogLocation(a, args[0])
	if err != nil {
		return err
	}

	daily, err := fetchHistories(cmd, a, location, dateRange)
	if err != nil {
		return err
	}
	if len(daily.Histories) == 0 {
		cmd.Println("The provider returned no histories.")
		return nil
	}

	history, err := archive.Open(location.Alias, a.dir.ArchivePath(location.Alias), a.logger)
	if err != nil {
		return err
	}
	timer := a.metrics.NewTimer(a.metrics.ArchiveAppendDuration)
	added, err := history.Append(daily.Histories)
	timer.ObserveDuration()
	if err != nil {
		return err
	}
	a.metrics.ArchiveAppendsTotal.Add(float64(len(added)))

	cmd.Printf("Added %d of %d histories to %s\n", len(added), len(daily.Histories), location.Alias)
	return nil
}

// fetchHistories runs the provider request and polls until it completes.
func fetchHistories(cmd *cobra.Command, a *app, location models.Location, dateRange models.DateRange) (models.DailyHistories, error) {
	provider, err := client.New(
		a.cfg.Provider.BaseURL,
		a.cfg.Provider.APIKey,
		time.Duration(a.cfg.Provider.TimeoutSeconds)*time.Second,
		a.logger)
	if err != nil {
		return models.DailyHistories{}, err
	}

	ctx := cmd.Context()
	if err := provider.Execute(ctx, location, dateRange); err != nil {
		return models.DailyHistories{}, err
	}

	interval := time.Duration(a.cfg.Provider.PollIntervalMS) * time.Millisecond
	for {
		done, err := provider.Poll()
		if err != nil {
			return models.DailyHistories{}, err
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			return models.DailyHistories{}, ctx.Err()
		case <-time.After(interval):
		}
	}

	daily, err := provider.Get()
	if err != nil {
		return models.DailyHistories{}, err
	}
	a.logger.Debug(ctx, "provider fetch complete", logging.Fields{
		"alias":     location.Alias,
		"histories": len(daily.Histories),
	})
	return daily, nil
}
