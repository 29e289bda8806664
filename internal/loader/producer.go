package loader

import (
	"context"
	"fmt"

	"weather-history/internal/archive"
	"weather-history/pkg/logging"
)

// Producer gathers one unit's records and pushes them onto the shared channel.
// Implementations are swapped in tests.
type Producer interface {
	Gather(ctx context.Context, unit Unit, out chan<- Record) error
}

// archiveProducer extracts every stored history from a unit's container.
type archiveProducer struct {
	logger *logging.StructuredLogger
}

// NewArchiveProducer returns the standard container-backed producer.
func NewArchiveProducer(logger *logging.StructuredLogger) Producer {
	return &archiveProducer{logger: logger}
}

// Gather opens the unit's archive and pushes each decoded record, tagged with
// the destination row id. Record order follows the container iterator and is
// not guaranteed sorted.
func (p *archiveProducer) Gather(ctx context.Context, unit Unit, out chan<- Record) error {
	a, err := archive.Open(unit.Alias, unit.ArchivePath, p.logger)
	if err != nil {
		return fmt.Errorf("%q: gather archive: %w", unit.Alias, err)
	}
	cursor, err := a.Content()
	if err != nil {
		return fmt.Errorf("%q: gather archive content: %w", unit.Alias, err)
	}
	defer cursor.Close()
	for cursor.Next() {
		record := cursor.Record()
		out <- Record{LID: unit.LID, Metadata: record.Metadata, History: record.History}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("%q: gather archive content: %w", unit.Alias, err)
	}
	return nil
}
