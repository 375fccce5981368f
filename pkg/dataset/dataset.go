// Package dataset holds the process-wide Pokémon record set.
//
// A Dataset starts in StateLoading, runs one batch fetch and decode, and then
// moves exactly once to StateReady or StateFailed. The ready Snapshot is
// never modified and is safe for concurrent readers.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/pokedash/pkg/batch"
	"github.com/Sternrassler/pokedash/pkg/logging"
	"github.com/Sternrassler/pokedash/pkg/pokemon"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for dataset loads.
var (
	recordsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokedash_records_loaded",
		Help: "Number of records in the current snapshot",
	})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedash_load_duration_seconds",
		Help:    "Duration of the initial data load in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	loadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedash_load_failures_total",
		Help: "Total number of failed data loads",
	})
)

var (
	// ErrNotReady is returned while the load is still running.
	ErrNotReady = errors.New("dataset is still loading")

	// ErrLoadFailed wraps the cause of a failed load.
	ErrLoadFailed = errors.New("dataset load failed")

	// ErrAlreadyLoaded is returned when Load is called more than once.
	ErrAlreadyLoaded = errors.New("dataset load already started")

	// ErrDuplicateID is returned when two decoded records share an id.
	ErrDuplicateID = errors.New("duplicate pokemon id")
)

// State is the lifecycle stage of a Dataset.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Fetcher retrieves the raw bodies for an id range. *batch.Fetcher implements it.
type Fetcher interface {
	FetchRange(ctx context.Context, r batch.Range) ([]batch.Result, error)
}

// Status is a point-in-time view of the load.
type Status struct {
	State      State     `json:"state"`
	LoadID     string    `json:"load_id,omitempty"`
	Records    int       `json:"records"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Dataset owns the loaded record set.
type Dataset struct {
	fetcher Fetcher
	ids     batch.Range
	logger  zerolog.Logger

	mu        sync.RWMutex
	started   bool
	state     State
	loadID    string
	startedAt time.Time
	endedAt   time.Time
	snapshot  *Snapshot
	err       error
	done      chan struct{}
}

// New creates a Dataset that will load ids through fetcher.
func New(fetcher Fetcher, ids batch.Range) *Dataset {
	return &Dataset{
		fetcher: fetcher,
		ids:     ids,
		logger:  logging.NewLogger("dataset"),
		state:   StateLoading,
		done:    make(chan struct{}),
	}
}

// Load fetches and decodes the whole range. It may be called once; the
// outcome is recorded for State, Status and Snapshot.
func (d *Dataset) Load(ctx context.Context) (*Snapshot, error) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil, ErrAlreadyLoaded
	}
	d.started = true
	d.loadID = uuid.NewString()
	d.startedAt = time.Now()
	loadID, startedAt := d.loadID, d.startedAt
	d.mu.Unlock()

	logger := d.logger.With().Str("load_id", loadID).Logger()
	logger.Info().
		Int("first", d.ids.First).
		Int("last", d.ids.Last).
		Msg("Loading dataset")

	snap, err := d.load(ctx)
	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)
	loadDuration.Observe(duration.Seconds())

	d.mu.Lock()
	defer d.mu.Unlock()
	defer close(d.done)

	d.endedAt = finishedAt
	if err != nil {
		d.state = StateFailed
		d.err = err
		loadFailuresTotal.Inc()
		logger.Error().Err(err).Dur("duration", duration).Msg("Dataset load failed")
		return nil, err
	}

	snap.LoadID = loadID
	snap.StartedAt = startedAt
	snap.FinishedAt = finishedAt
	d.snapshot = snap
	d.state = StateReady
	recordsLoaded.Set(float64(snap.Len()))

	logger.Info().
		Int("records", snap.Len()).
		Dur("duration", duration).
		Msg("Dataset ready")

	return snap, nil
}

func (d *Dataset) load(ctx context.Context) (*Snapshot, error) {
	results, err := d.fetcher.FetchRange(ctx, d.ids)
	if err != nil {
		return nil, err
	}

	records := make([]pokemon.Record, 0, len(results))
	for _, res := range results {
		rec, err := pokemon.DecodeFor(res.ID, res.Body)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return NewSnapshot(records)
}

// State returns the current lifecycle stage.
func (d *Dataset) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Status returns the current lifecycle stage with load metadata.
func (d *Dataset) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{
		State:      d.state,
		LoadID:     d.loadID,
		StartedAt:  d.startedAt,
		FinishedAt: d.endedAt,
	}
	if d.snapshot != nil {
		s.Records = d.snapshot.Len()
	}
	if d.err != nil {
		s.Error = d.err.Error()
	}
	return s
}

// Snapshot returns the loaded records. It fails with ErrNotReady while
// loading and with an error wrapping ErrLoadFailed and the cause after a
// failed load.
func (d *Dataset) Snapshot() (*Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch d.state {
	case StateReady:
		return d.snapshot, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, d.err)
	default:
		return nil, ErrNotReady
	}
}

// Done is closed once the load has finished, successfully or not.
func (d *Dataset) Done() <-chan struct{} {
	return d.done
}
