package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"weather-history/internal/archive"
	"weather-history/internal/audit"
	"weather-history/internal/loader"
	"weather-history/internal/models"
	"weather-history/internal/reports"
	"weather-history/pkg/logging"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "History index commands",
	Long:  `Initialize, load, audit, and report on the history index database.`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the index schema",
	Long:  `Create the index tables and indexes. Running against an initialized database is a no-op.`,
	RunE:  runDBInit,
}

var dbDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the index schema",
	Long:  `Drop every index table. The archives and the location catalog are not touched.`,
	RunE:  runDBDrop,
}

var dbLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk load archives into the index",
	Long: `Load every cataloged location's archive into the index. Locations that
already have indexed histories are skipped; use reload to rebuild them.`,
	RunE: runDBLoad,
}

var dbReloadCmd = &cobra.Command{
	Use:   "reload [pattern]...",
	Short: "Rebuild index rows from the archives",
	Long: `Replace the indexed histories of each matching location with the contents
of its archive.`,
	RunE: runDBReload,
}

var dbAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit index consistency",
	Long: `Compare the location catalog and the archives against the index and report
drift. The audit never modifies anything.`,
	RunE: runDBAudit,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report per-location index statistics",
	RunE:  runDBStats,
}

var (
	dbLoadWorkers int
	dbDropConfirm bool
	dbStatsFormat string
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbDropCmd)
	dbCmd.AddCommand(dbLoadCmd)
	dbCmd.AddCommand(dbReloadCmd)
	dbCmd.AddCommand(dbAuditCmd)
	dbCmd.AddCommand(dbStatsCmd)

	dbLoadCmd.Flags().IntVar(&dbLoadWorkers, "workers", 0, "Producer worker count (defaults to configuration)")
	dbDropCmd.Flags().BoolVarP(&dbDropConfirm, "yes", "y", false, "Skip confirmation prompt")
	dbStatsCmd.Flags().StringVarP(&dbStatsFormat, "format", "f", "text", "Output format (text, csv, json)")
}

func runDBInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{createStore: true, withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ix.InitSchema(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index schema initialized.")
	return nil
}

func runDBDrop(cmd *cobra.Command, args []string) error {
	if !dbDropConfirm {
		cmd.Print("This will drop every index table. Are you sure? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ix.DropSchema(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index schema dropped.")
	return nil
}

func runDBLoad(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	units, err := loadUnits(ctx, a)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		cmd.Println("Nothing to load.")
		return nil
	}

	workers := a.cfg.Loader.Workers
	if dbLoadWorkers > 0 {
		workers = dbLoadWorkers
	}
	bulk := loader.New(
		loader.NewArchiveProducer(a.logger),
		loader.NewIndexConsumer(a.ix, a.logger),
		workers,
		a.logger,
		a.metrics)
	result, err := bulk.Run(ctx, units)
	if err != nil {
		return err
	}

	cmd.Printf("Loaded %d histories from %d of %d locations in %s\n",
		result.Records, result.LocationsLoaded, result.LocationsTotal, result.Duration.Round(time.Millisecond))
	if result.Partial() {
		return fmt.Errorf("%d locations failed to load", result.LocationsFailed)
	}
	return nil
}

// loadUnits catalogs index rows for every location, then builds load units for
// the locations that have an archive and no indexed histories yet.
func loadUnits(ctx context.Context, a *app) ([]loader.Unit, error) {
	cataloged, err := a.store.Get()
	if err != nil {
		return nil, err
	}
	counts, err := a.ix.HistoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	var units []loader.Unit
	for _, location := range cataloged {
		lid, err := a.ix.LocationID(ctx, location.Alias)
		if err != nil {
			var notFound *models.NotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			lid, err = a.ix.AddLocation(ctx, location)
			if err != nil {
				return nil, err
			}
		}
		if counts[location.Alias] > 0 {
			a.logger.Info(ctx, "location already loaded, skipping", logging.Fields{
				"alias": location.Alias,
			})
			continue
		}
		units = append(units, loader.Unit{
			LID:         lid,
			Alias:       location.Alias,
			ArchivePath: a.dir.ArchivePath(location.Alias),
		})
	}
	return units, nil
}

func runDBReload(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	found, err := a.store.Find(buildFilters(args))
	if err != nil {
		return err
	}

	for _, location := range found {
		lid, err := a.ix.LocationID(ctx, location.Alias)
		if err != nil {
			var notFound *models.NotFoundError
			if !errors.As(err, &notFound) {
				return err
			}
			lid, err = a.ix.AddLocation(ctx, location)
			if err != nil {
				return err
			}
		}

		records, err := archiveRecords(a, location)
		if err != nil {
			return err
		}
		if err := a.ix.ReloadLocation(ctx, lid, records); err != nil {
			return err
		}
		cmd.Printf("Reloaded %s with %d histories\n", location.Alias, len(records))
	}
	return nil
}

// archiveRecords reads every entry of a location's archive. A missing archive
// yields no records so a reload clears the index rows.
func archiveRecords(a *app, location models.Location) ([]archive.ContentRecord, error) {
	history, err := archive.Open(location.Alias, a.dir.ArchivePath(location.Alias), a.logger)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	cursor, err := history.Content()
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var records []archive.ContentRecord
	for cursor.Next() {
		records = append(records, cursor.Record())
	}
	return records, cursor.Err()
}

func runDBAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	auditor := audit.New(a.store, a.ix, a.logger)
	report, err := auditor.Run(cmd.Context())
	if err != nil {
		return err
	}

	if report.Clean() {
		cmd.Println("The catalog, archives, and index are consistent.")
		return nil
	}
	for _, alias := range report.Locations.MissingFromIndex {
		cmd.Printf("cataloged but not indexed: %s\n", alias)
	}
	for _, alias := range report.Locations.MissingFromArchive {
		cmd.Printf("indexed but not cataloged: %s\n", alias)
	}
	for _, drift := range report.Histories {
		cmd.Printf("history drift for %s: archive has %d, index has %d\n",
			drift.Alias, drift.ArchiveCount, drift.IndexCount)
	}
	return fmt.Errorf("audit found inconsistencies")
}

func runDBStats(cmd *cobra.Command, args []string) error {
	format, err := reports.ParseFormat(dbStatsFormat)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.ix.Summaries(cmd.Context())
	if err != nil {
		return err
	}
	// The index does not track archive file sizes; fill them in from disk.
	for i, summary := range summaries {
		if info, err := os.Stat(a.dir.ArchivePath(summary.Alias)); err == nil {
			summaries[i].OverallSize = info.Size()
		}
	}
	cataloged, err := a.store.Get()
	if err != nil {
		return err
	}
	return reports.Summaries(os.Stdout, format, cataloged, summaries)
}
