package eventservices

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
)

// Analyst produces a trade recommendation for one ticker. Calls are expected
// to take seconds; the job runs them strictly sequentially.
type Analyst interface {
	AnalyzeTicker(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error)
}

type AnalystFunc func(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error)

func (f AnalystFunc) AnalyzeTicker(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error) {
	return f(ctx, ticker)
}

// AnalysisJobService runs at most one batch analysis job at a time. The job
// state is server-authoritative: clients poll Snapshot to resume across
// reloads, and results appear incrementally as each target completes.
//
// A job whose heartbeat is older than the staleness window is treated as
// abandoned: StartJob takes over by bumping the generation counter, which
// makes the abandoned goroutine's remaining writes no-ops.
type AnalysisJobService struct {
	mu      sync.Mutex
	analyst Analyst
	hub     *eventpubsub.Hub

	staleness time.Duration

	generation int
	snapshot   eventmodels.AnalysisJobSnapshot
}

func NewAnalysisJobService(analyst Analyst, hub *eventpubsub.Hub, staleness time.Duration) *AnalysisJobService {
	return &AnalysisJobService{
		analyst:   analyst,
		hub:       hub,
		staleness: staleness,
		snapshot: eventmodels.AnalysisJobSnapshot{
			Status: eventmodels.JobStatusIdle,
		},
	}
}

// StartJob begins analyzing targets in a background goroutine. A second call
// while a job is live fails with ErrJobAlreadyRunning; a job gone silent past
// the staleness window is discarded and replaced.
func (s *AnalysisJobService) StartJob(ctx context.Context, targets []string) error {
	if len(targets) == 0 {
		return fmt.Errorf("AnalysisJobService:StartJob(): no targets given")
	}

	s.mu.Lock()

	if s.snapshot.Status == eventmodels.JobStatusRunning {
		if time.Since(s.snapshot.LastHeartbeat) < s.staleness {
			s.mu.Unlock()
			return fmt.Errorf("AnalysisJobService:StartJob(): %w", eventmodels.ErrJobAlreadyRunning)
		}

		log.Warnf("analysis job stale since %s, taking over", s.snapshot.LastHeartbeat.Format(time.RFC3339))
	}

	s.generation++
	generation := s.generation

	now := time.Now().UTC()
	s.snapshot = eventmodels.AnalysisJobSnapshot{
		Targets:       append([]string(nil), targets...),
		Results:       nil,
		Progress:      eventmodels.JobProgress{Current: 0, Total: len(targets)},
		Status:        eventmodels.JobStatusRunning,
		StartedAt:     now,
		LastHeartbeat: now,
	}

	s.mu.Unlock()

	go s.run(ctx, generation, targets)

	return nil
}

func (s *AnalysisJobService) run(ctx context.Context, generation int, targets []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("AnalysisJobService:run(): recovered from panic: %v", r)
			s.finish(generation, eventmodels.JobStatusError)
		}
	}()

	for i, ticker := range targets {
		select {
		case <-ctx.Done():
			s.finish(generation, eventmodels.JobStatusError)
			return
		default:
		}

		result, err := s.analyst.AnalyzeTicker(ctx, ticker)
		if err != nil {
			log.Errorf("AnalysisJobService:run(): analysis of %s failed: %v", ticker, err)
			result = &eventmodels.AnalysisResult{Ticker: ticker, Err: err.Error()}
		}

		if !s.appendResult(generation, i+1, *result) {
			// a takeover happened mid-target; stop silently
			return
		}

		s.hub.Publish(eventmodels.NewMessage(eventmodels.MessageTypeAnalysisResult, *result))
	}

	s.finish(generation, eventmodels.JobStatusDone)
}

// appendResult records one completed target and refreshes the heartbeat. It
// reports false when the generation no longer matches, meaning this goroutine
// was superseded.
func (s *AnalysisJobService) appendResult(generation int, current int, result eventmodels.AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}

	s.snapshot.Results = append(s.snapshot.Results, result)
	s.snapshot.Progress.Current = current
	s.snapshot.LastHeartbeat = time.Now().UTC()

	return true
}

func (s *AnalysisJobService) finish(generation int, status eventmodels.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}

	s.snapshot.Status = status
	s.snapshot.LastHeartbeat = time.Now().UTC()
}

// Snapshot returns a deep copy of the current job state. A running job whose
// heartbeat has aged past the staleness window reports as stale, the same
// condition under which StartJob would take it over.
func (s *AnalysisJobService) Snapshot() eventmodels.AnalysisJobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot
	snapshot.Targets = append([]string(nil), s.snapshot.Targets...)
	snapshot.Results = append([]eventmodels.AnalysisResult(nil), s.snapshot.Results...)

	if snapshot.Status == eventmodels.JobStatusRunning && time.Since(snapshot.LastHeartbeat) >= s.staleness {
		snapshot.Status = eventmodels.JobStatusStale
	}

	return snapshot
}
