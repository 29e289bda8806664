package audit

import (
	"context"
	"fmt"
	"sort"

	"weather-history/internal/archive"
	"weather-history/internal/index"
	"weather-history/internal/locations"
	"weather-history/pkg/logging"
)

// Auditor compares the archives against the secondary index and reports
// drift. It is read-only; repair is the index reload operation.
type Auditor struct {
	store  *locations.Store
	ix     *index.Index
	logger *logging.StructuredLogger
}

// New creates an auditor over the location store and the index.
func New(store *locations.Store, ix *index.Index, logger *logging.StructuredLogger) *Auditor {
	return &Auditor{store: store, ix: ix, logger: logger}
}

// LocationDrift lists aliases present on one side and absent from the other.
type LocationDrift struct {
	MissingFromIndex   []string
	MissingFromArchive []string
}

// Empty reports whether both sides hold the same aliases.
func (d LocationDrift) Empty() bool {
	return len(d.MissingFromIndex) == 0 && len(d.MissingFromArchive) == 0
}

// HistoryDrift is the per-location history count comparison for an alias
// present on both sides.
type HistoryDrift struct {
	Alias        string
	ArchiveCount int
	IndexCount   int
}

// IndexMissing is the number of archived histories the index lacks.
func (d HistoryDrift) IndexMissing() int {
	if d.ArchiveCount > d.IndexCount {
		return d.ArchiveCount - d.IndexCount
	}
	return 0
}

// IndexExtra is the number of indexed histories the archive lacks. Nonzero
// values are unexpected since the loader only copies from archives.
func (d HistoryDrift) IndexExtra() int {
	if d.IndexCount > d.ArchiveCount {
		return d.IndexCount - d.ArchiveCount
	}
	return 0
}

// Report is the outcome of one audit run.
type Report struct {
	Locations LocationDrift
	Histories []HistoryDrift
}

// Clean reports whether no drift was found.
func (r Report) Clean() bool {
	return r.Locations.Empty() && len(r.Histories) == 0
}

// Run audits locations first, then history counts for every alias present on
// both sides. Histories lists only aliases whose counts differ, sorted.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	cataloged, err := a.store.Get()
	if err != nil {
		return Report{}, fmt.Errorf("audit locations: %w", err)
	}
	archiveAliases := make(map[string]bool, len(cataloged))
	for _, location := range cataloged {
		archiveAliases[location.Alias] = true
	}

	indexCounts, err := a.ix.HistoryCounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("audit index: %w", err)
	}

	var report Report
	for alias := range archiveAliases {
		if _, ok := indexCounts[alias]; !ok {
			report.Locations.MissingFromIndex = append(report.Locations.MissingFromIndex, alias)
		}
	}
	for alias := range indexCounts {
		if !archiveAliases[alias] {
			report.Locations.MissingFromArchive = append(report.Locations.MissingFromArchive, alias)
		}
	}
	sort.Strings(report.Locations.MissingFromIndex)
	sort.Strings(report.Locations.MissingFromArchive)

	for _, location := range cataloged {
		indexCount, ok := indexCounts[location.Alias]
		if !ok {
			continue
		}
		archiveCount, err := a.archiveCount(location.Alias)
		if err != nil {
			a.logger.Warn(ctx, "audit skipped unreadable archive",
				logging.Fields{"alias": location.Alias, "reason": err.Error()})
			continue
		}
		if archiveCount != indexCount {
			report.Histories = append(report.Histories, HistoryDrift{
				Alias:        location.Alias,
				ArchiveCount: archiveCount,
				IndexCount:   indexCount,
			})
		}
	}
	sort.Slice(report.Histories, func(i, j int) bool {
		return report.Histories[i].Alias < report.Histories[j].Alias
	})

	a.logger.Info(ctx, "audit finished", logging.Fields{
		"clean":                report.Clean(),
		"missing_from_index":   len(report.Locations.MissingFromIndex),
		"missing_from_archive": len(report.Locations.MissingFromArchive),
		"history_drift":        len(report.Histories),
	})
	return report, nil
}

func (a *Auditor) archiveCount(alias string) (int, error) {
	container, err := archive.Open(alias, a.store.Dir().ArchivePath(alias), a.logger)
	if err != nil {
		return 0, err
	}
	summary, err := container.Summary()
	if err != nil {
		return 0, err
	}
	return summary.Count, nil
}
