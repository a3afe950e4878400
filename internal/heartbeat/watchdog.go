// -----------------------------------------------------------------------
// Watchdog periodically sweeps in-progress jobs owned by this worker and
// warns when one has run an item past JobTimeout/4 without a heartbeat,
// surfacing slow handlers before the lease actually expires.
// -----------------------------------------------------------------------

package heartbeat

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Watchdog tracks the in-flight beaters this worker currently owns.
type Watchdog struct {
	cron       *cron.Cron
	logger     arbor.ILogger
	jobTimeout time.Duration

	mu      sync.Mutex
	inFlight map[string]*trackedJob
}

type trackedJob struct {
	jobID     string
	startedAt time.Time
	lastBeat  time.Time
}

// NewWatchdog builds a Watchdog that sweeps every minute.
func NewWatchdog(logger arbor.ILogger, jobTimeout time.Duration) *Watchdog {
	return &Watchdog{
		cron:       cron.New(),
		logger:     logger,
		jobTimeout: jobTimeout,
		inFlight:   make(map[string]*trackedJob),
	}
}

// Start registers the sweep and begins the cron scheduler.
func (w *Watchdog) Start() error {
	_, err := w.cron.AddFunc("@every 1m", w.sweep)
	if err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (w *Watchdog) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// Track registers a job as in-flight so the sweep can watch it.
func (w *Watchdog) Track(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now().UTC()
	w.inFlight[jobID] = &trackedJob{jobID: jobID, startedAt: now, lastBeat: now}
}

// Beat records that jobID just heartbeat, resetting its staleness clock.
func (w *Watchdog) Beat(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.inFlight[jobID]; ok {
		t.lastBeat = time.Now().UTC()
	}
}

// Untrack removes jobID once its batch finishes (success or failure).
func (w *Watchdog) Untrack(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, jobID)
}

func (w *Watchdog) sweep() {
	threshold := w.jobTimeout / 4
	now := time.Now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.inFlight {
		if now.Sub(t.lastBeat) > threshold {
			w.logger.Warn().
				Str("job_id", t.jobID).
				Dur("since_last_beat", now.Sub(t.lastBeat)).
				Msg("job item running long without a heartbeat")
		}
	}
}
