package eventservices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
)

// steppedAnalyst blocks on every call until the test releases it, so tests
// can observe mid-job snapshots deterministically.
type steppedAnalyst struct {
	calls   chan string
	release chan struct{}
	fail    map[string]bool
}

func newSteppedAnalyst() *steppedAnalyst {
	return &steppedAnalyst{
		calls:   make(chan string, 16),
		release: make(chan struct{}),
		fail:    make(map[string]bool),
	}
}

func (a *steppedAnalyst) AnalyzeTicker(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error) {
	a.calls <- ticker
	<-a.release

	if a.fail[ticker] {
		return nil, fmt.Errorf("model unavailable for %s", ticker)
	}

	return &eventmodels.AnalysisResult{
		Ticker:     ticker,
		Decision:   "buy",
		Confidence: 0.8,
		Reasoning:  "momentum",
	}, nil
}

func (a *steppedAnalyst) step(t *testing.T) string {
	t.Helper()

	select {
	case ticker := <-a.calls:
		a.release <- struct{}{}
		return ticker
	case <-time.After(2 * time.Second):
		t.Fatal("analyst was not called in time")
		return ""
	}
}

func waitForStatus(t *testing.T, svc *AnalysisJobService, status eventmodels.JobStatus) eventmodels.AnalysisJobSnapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := svc.Snapshot()
		if snapshot.Status == status {
			return snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("job never reached status %s", status)
	return eventmodels.AnalysisJobSnapshot{}
}

func waitForProgress(t *testing.T, svc *AnalysisJobService, current int) eventmodels.AnalysisJobSnapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := svc.Snapshot()
		if snapshot.Progress.Current >= current {
			return snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("job never reached progress %d", current)
	return eventmodels.AnalysisJobSnapshot{}
}

func Test_AnalysisJobService_StartJob(t *testing.T) {
	ctx := context.Background()

	t.Run("runs targets sequentially and preserves order in results", func(t *testing.T) {
		// arrange
		analyst := newSteppedAnalyst()
		svc := NewAnalysisJobService(analyst, eventpubsub.NewHub(), 5*time.Minute)
		targets := []string{"AAPL", "TSLA", "NVDA", "MSFT", "AMZN"}

		// act
		require.NoError(t, svc.StartJob(ctx, targets))

		var calledOrder []string
		for range targets {
			calledOrder = append(calledOrder, analyst.step(t))
		}

		snapshot := waitForStatus(t, svc, eventmodels.JobStatusDone)

		// assert
		assert.Equal(t, targets, calledOrder)
		require.Equal(t, len(targets), len(snapshot.Results))
		for i, target := range targets {
			assert.Equal(t, target, snapshot.Results[i].Ticker)
		}
		assert.Equal(t, eventmodels.JobProgress{Current: 5, Total: 5}, snapshot.Progress)
	})

	t.Run("second start while running fails with already running", func(t *testing.T) {
		// arrange
		analyst := newSteppedAnalyst()
		svc := NewAnalysisJobService(analyst, eventpubsub.NewHub(), 5*time.Minute)

		require.NoError(t, svc.StartJob(ctx, []string{"AAPL", "TSLA"}))

		// act
		err := svc.StartJob(ctx, []string{"NVDA"})

		// assert
		assert.ErrorIs(t, err, eventmodels.ErrJobAlreadyRunning)

		// drain
		analyst.step(t)
		analyst.step(t)
		waitForStatus(t, svc, eventmodels.JobStatusDone)
	})

	t.Run("mid-job snapshot carries partial results for resumption", func(t *testing.T) {
		// arrange
		analyst := newSteppedAnalyst()
		svc := NewAnalysisJobService(analyst, eventpubsub.NewHub(), 5*time.Minute)
		targets := []string{"AAPL", "TSLA", "NVDA"}

		require.NoError(t, svc.StartJob(ctx, targets))

		// act: complete only the first target
		analyst.step(t)
		snapshot := waitForProgress(t, svc, 1)

		// assert
		assert.Equal(t, eventmodels.JobStatusRunning, snapshot.Status)
		assert.Equal(t, targets, snapshot.Targets)
		require.Equal(t, 1, len(snapshot.Results))
		assert.Equal(t, "AAPL", snapshot.Results[0].Ticker)
		assert.Equal(t, eventmodels.JobProgress{Current: 1, Total: 3}, snapshot.Progress)

		// drain
		analyst.step(t)
		analyst.step(t)
		waitForStatus(t, svc, eventmodels.JobStatusDone)
	})

	t.Run("per-target failures are recorded and the job still finishes", func(t *testing.T) {
		// arrange
		analyst := newSteppedAnalyst()
		analyst.fail["TSLA"] = true

		hub := eventpubsub.NewHub()
		svc := NewAnalysisJobService(analyst, hub, 5*time.Minute)

		var published []eventmodels.Message
		hub.Subscribe(func(msg eventmodels.Message) {
			published = append(published, msg)
		}, nil)

		// act
		require.NoError(t, svc.StartJob(ctx, []string{"AAPL", "TSLA", "NVDA"}))
		analyst.step(t)
		analyst.step(t)
		analyst.step(t)

		snapshot := waitForStatus(t, svc, eventmodels.JobStatusDone)

		// assert
		require.Equal(t, 3, len(snapshot.Results))
		assert.Empty(t, snapshot.Results[0].Err)
		assert.NotEmpty(t, snapshot.Results[1].Err)
		assert.Empty(t, snapshot.Results[2].Err)
		assert.Equal(t, 3, len(published))
	})

	t.Run("stale job is superseded and its late results are dropped", func(t *testing.T) {
		// arrange: zero staleness window means any running job counts as
		// abandoned on the next start
		analyst := newSteppedAnalyst()
		svc := NewAnalysisJobService(analyst, eventpubsub.NewHub(), 0)

		require.NoError(t, svc.StartJob(ctx, []string{"AAPL"}))

		// the first job is now blocked inside the analyst
		<-analyst.calls

		// act: take over
		require.NoError(t, svc.StartJob(ctx, []string{"NVDA"}))

		// unblock both goroutines; the stale generation's result is
		// discarded regardless of which one wakes first
		analyst.release <- struct{}{}
		analyst.release <- struct{}{}

		snapshot := waitForStatus(t, svc, eventmodels.JobStatusDone)

		// assert: only the new job's result is visible
		assert.Equal(t, []string{"NVDA"}, snapshot.Targets)
		require.Equal(t, 1, len(snapshot.Results))
		assert.Equal(t, "NVDA", snapshot.Results[0].Ticker)
	})

	t.Run("running job reports stale once the heartbeat ages past the window", func(t *testing.T) {
		// arrange
		analyst := newSteppedAnalyst()
		svc := NewAnalysisJobService(analyst, eventpubsub.NewHub(), 50*time.Millisecond)

		require.NoError(t, svc.StartJob(ctx, []string{"AAPL"}))

		// blocked inside the analyst, so the heartbeat stops advancing
		<-analyst.calls

		// act
		time.Sleep(80 * time.Millisecond)
		snapshot := svc.Snapshot()

		// assert: the abandoned job no longer reports running
		assert.Equal(t, eventmodels.JobStatusStale, snapshot.Status)

		// and a fresh start is allowed to take it over
		require.NoError(t, svc.StartJob(ctx, []string{"NVDA"}))
		analyst.release <- struct{}{}
		analyst.release <- struct{}{}

		done := waitForStatus(t, svc, eventmodels.JobStatusDone)
		assert.Equal(t, []string{"NVDA"}, done.Targets)
	})

	t.Run("empty target list is rejected", func(t *testing.T) {
		svc := NewAnalysisJobService(newSteppedAnalyst(), eventpubsub.NewHub(), 5*time.Minute)

		err := svc.StartJob(ctx, nil)

		assert.Error(t, err)
		assert.Equal(t, eventmodels.JobStatusIdle, svc.Snapshot().Status)
	})
}
