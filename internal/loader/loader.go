package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// channelCapacity sizes the shared record channel. Producers block only if
// they outrun the consumer by this many records.
const channelCapacity = 4096

// Loader fans archive extraction out across worker goroutines and funnels the
// records through a single consumer into one transactional write. It only
// reads archives, never mutates them.
type Loader struct {
	producer Producer
	consumer Consumer
	workers  int
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// Result describes a finished run. A run with failed locations still commits
// the records the other producers gathered; the error return of Run stays nil
// unless the consumer fails.
type Result struct {
	RunID           string
	LocationsTotal  int
	LocationsLoaded int
	LocationsFailed int
	Records         int
	Duration        time.Duration
}

// Partial reports whether some locations failed to load.
func (r Result) Partial() bool {
	return r.LocationsFailed > 0
}

// New creates a loader with the given worker count. Workers below one are
// raised to one.
func New(producer Producer, consumer Consumer, workers int, logger *logging.StructuredLogger, collector *metrics.Collector) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		producer: producer,
		consumer: consumer,
		workers:  workers,
		logger:   logger,
		metrics:  collector,
	}
}

// Run drains the units through the producer workers and collects the records
// in the calling goroutine. A producer error or panic is logged and ends that
// worker only; the remaining workers keep claiming units. The run fails only
// when the consumer fails, in which case nothing was committed.
func (l *Loader) Run(ctx context.Context, units []Unit) (Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	start := time.Now()
	timer := l.metrics.NewTimer(l.metrics.LoaderRunDuration)
	defer timer.ObserveDuration()

	l.logger.Info(ctx, "bulk load started", logging.Fields{
		"locations": len(units),
		"workers":   l.workers,
	})

	queue := NewQueue(units)
	records := make(chan Record, channelCapacity)
	var loaded atomic.Int64

	var wg sync.WaitGroup
	for worker := 0; worker < l.workers; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			l.produce(ctx, worker, queue, records, &loaded)
		}(worker)
	}
	go func() {
		wg.Wait()
		close(records)
	}()

	count, err := l.consumer.Collect(ctx, records)
	result := Result{
		RunID:           runID,
		LocationsTotal:  len(units),
		LocationsLoaded: int(loaded.Load()),
		LocationsFailed: len(units) - int(loaded.Load()),
		Records:         count,
		Duration:        time.Since(start),
	}
	if err != nil {
		// Producers may still be pushing; drain so they can finish and exit.
		for range records {
		}
		l.metrics.RecordLoaderError("consumer")
		l.logger.Error(ctx, "bulk load failed", logging.Fields{
			"locations": result.LocationsTotal,
		}, err)
		return result, err
	}

	l.metrics.LoaderRecordsTotal.Add(float64(count))
	l.logger.Info(ctx, "bulk load finished", logging.Fields{
		"locations_total":  result.LocationsTotal,
		"locations_loaded": result.LocationsLoaded,
		"records":          result.Records,
		"duration_ms":      result.Duration.Milliseconds(),
	})
	return result, nil
}

// produce claims units until the queue empties. An error or panic on one unit
// stops this worker; other workers are unaffected.
func (l *Loader) produce(ctx context.Context, worker int, queue *Queue, records chan<- Record, loaded *atomic.Int64) {
	logger := l.logger.WithFields(logging.Fields{"worker": worker})
	defer func() {
		if recovered := recover(); recovered != nil {
			l.metrics.RecordLoaderError("producer_panic")
			logger.Error(ctx, "bulk load worker panicked", logging.Fields{
				"panic": recovered,
			}, nil)
		}
	}()
	for {
		unit, ok := queue.Pop()
		if !ok {
			return
		}
		if err := l.producer.Gather(ctx, unit, records); err != nil {
			l.metrics.RecordLoaderError("producer")
			logger.Error(ctx, "bulk load worker stopped", logging.Fields{
				"alias": unit.Alias,
			}, err)
			return
		}
		loaded.Add(1)
	}
}
