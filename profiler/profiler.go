// Package profiler - Stage timings and runtime statistics for the decoder.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Profiler records named operation durations and custom metrics, and can
// periodically report them to a zap logger. It is safe for concurrent use and
// satisfies openpose.StageTimer.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int
	logger         *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started time.Time
	running bool

	metrics    map[string]*metricTracker
	operations map[string]*timeTracker
}

type metricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
}

type timeTracker struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

// Options configures a Profiler.
type Options struct {
	// ReportInterval is how often Start emits reports (default: 10s).
	ReportInterval time.Duration
	// MaxSamples bounds the rolling window per operation (default: 600).
	MaxSamples int
	// Logger receives reports. Defaults to a no-op logger.
	Logger *zap.Logger
}

// OperationStats summarizes the rolling window of one operation.
type OperationStats struct {
	Name    string        `json:"name"`
	Count   int64         `json:"count"`
	Samples int           `json:"samples"`
	Avg     time.Duration `json:"avg"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
}

// MetricStats summarizes the rolling window of one custom metric.
type MetricStats struct {
	Name    string  `json:"name"`
	Samples int     `json:"samples"`
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// New creates a profiler.
//
// Arguments:
//   - opts: Configuration options for the profiler.
//
// Returns:
//   - *Profiler: The profiler, not yet reporting.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		ctx:            ctx,
		cancel:         cancel,
		started:        time.Now(),
		metrics:        make(map[string]*metricTracker),
		operations:     make(map[string]*timeTracker),
	}
}

// Start begins periodic reporting. Calling it twice is a no-op.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.started = time.Now()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.Report()
			}
		}
	}()
}

// Stop ends periodic reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): Call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration adds one completed operation to the named window.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.operations[name]
	if !ok {
		tracker = &timeTracker{min: d, max: d}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, d)
	tracker.total += d
	if len(tracker.durations) > p.maxSamples {
		tracker.total -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++
	tracker.min = min(tracker.min, d)
	tracker.max = max(tracker.max, d)
}

// RecordMetric records a custom metric value, such as poses per frame.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.metrics[name]
	if !ok {
		tracker = &metricTracker{min: value, max: value}
		p.metrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > p.maxSamples {
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// Operations returns the operation statistics sorted by name.
func (p *Profiler) Operations() []OperationStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]OperationStats, 0, len(p.operations))
	for name, tracker := range p.operations {
		if len(tracker.durations) == 0 {
			continue
		}
		out = append(out, OperationStats{
			Name:    name,
			Count:   tracker.count,
			Samples: len(tracker.durations),
			Avg:     tracker.total / time.Duration(len(tracker.durations)),
			Min:     tracker.min,
			Max:     tracker.max,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Metrics returns the custom metric statistics sorted by name.
func (p *Profiler) Metrics() []MetricStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]MetricStats, 0, len(p.metrics))
	for name, tracker := range p.metrics {
		if len(tracker.values) == 0 {
			continue
		}
		out = append(out, MetricStats{
			Name:    name,
			Samples: len(tracker.values),
			Avg:     tracker.sum / float64(len(tracker.values)),
			Min:     tracker.min,
			Max:     tracker.max,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report logs the current statistics at info level: one record for the
// runtime and one per operation and metric.
func (p *Profiler) Report() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.RLock()
	uptime := time.Since(p.started)
	p.mu.RUnlock()

	p.logger.Info("profiler runtime",
		zap.Duration("uptime", uptime.Truncate(time.Millisecond)),
		zap.Int("goroutines", runtime.NumGoroutine()),
		zap.Uint64("heap_alloc", mem.HeapAlloc),
		zap.Uint32("gc_cycles", mem.NumGC),
	)
	for _, op := range p.Operations() {
		p.logger.Info("profiler operation",
			zap.String("name", op.Name),
			zap.Int64("count", op.Count),
			zap.Duration("avg", op.Avg),
			zap.Duration("min", op.Min),
			zap.Duration("max", op.Max),
		)
	}
	for _, m := range p.Metrics() {
		p.logger.Info("profiler metric",
			zap.String("name", m.Name),
			zap.Int("samples", m.Samples),
			zap.Float64("avg", m.Avg),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max),
		)
	}
}
