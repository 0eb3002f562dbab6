// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"formsync/internal/common/config"
	commonerrors "formsync/internal/common/errors"
	"formsync/internal/common/logger"
	"formsync/internal/common/metrics"
	"formsync/internal/common/observability"
	"formsync/internal/engine"
)

// SyncRunner is what the scheduler drives once per tick per source.
type SyncRunner interface {
	Sync(ctx context.Context, src config.SourceConfig) (engine.Result, error)
}

type sourceState struct {
	src     config.SourceConfig
	nextDue time.Time
	inRun   atomic.Bool
}

// Scheduler drives all configured sources from one coordinating loop.
// Each source runs on its own fixed interval; cycles for different
// sources overlap freely, while a source whose previous cycle is still
// in flight skips the tick instead of overlapping with itself. A failed
// cycle is logged and contained; it never stops the loop or delays
// other sources.
type Scheduler struct {
	runner SyncRunner
	clock  Clock
	logger logger.Logger
	obs    *observability.Observability

	states []*sourceState
	wg     sync.WaitGroup
}

func New(runner SyncRunner, sources []config.SourceConfig, clock Clock, log logger.Logger, obs *observability.Observability) *Scheduler {
	states := make([]*sourceState, 0, len(sources))
	for _, src := range sources {
		states = append(states, &sourceState{src: src})
	}
	return &Scheduler{
		runner: runner,
		clock:  clock,
		logger: log,
		obs:    obs,
		states: states,
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight cycles
// to finish. Every source is due immediately on startup.
func (s *Scheduler) Run(ctx context.Context) {
	now := s.clock.Now()
	for _, st := range s.states {
		st.nextDue = now
	}

	for {
		now = s.clock.Now()

		for _, st := range s.states {
			if now.Before(st.nextDue) {
				continue
			}
			st.nextDue = now.Add(time.Duration(st.src.IntervalSeconds) * time.Second)

			if !st.inRun.CompareAndSwap(false, true) {
				s.logger.Warn("previous cycle still in flight, skipping tick", map[string]interface{}{
					"source": st.src.ID,
				})
				continue
			}

			s.wg.Add(1)
			go func(st *sourceState) {
				defer s.wg.Done()
				defer st.inRun.Store(false)
				s.runCycle(ctx, st.src)
			}(st)
		}

		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.clock.After(s.untilNextDue(s.clock.Now())):
		}
	}
}

func (s *Scheduler) untilNextDue(now time.Time) time.Duration {
	wait := time.Minute
	for _, st := range s.states {
		if d := st.nextDue.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) runCycle(ctx context.Context, src config.SourceConfig) {
	cycleID := uuid.NewString()
	log := s.logger.WithFields(map[string]interface{}{
		"cycle_id": cycleID,
		"source":   src.ID,
	})

	metrics.CyclesActive.WithLabelValues(src.ID).Inc()
	defer metrics.CyclesActive.WithLabelValues(src.ID).Dec()

	start := s.clock.Now()
	res, err := s.runner.Sync(ctx, src)
	elapsed := s.clock.Now().Sub(start)

	metrics.CycleDuration.WithLabelValues(src.ID).Observe(elapsed.Seconds())
	s.obs.RecordCycleDuration(ctx, elapsed, src.ID)

	if err != nil {
		code := string(commonerrors.CodeOf(err))
		metrics.SyncCyclesTotal.WithLabelValues(src.ID, "failed").Inc()
		metrics.SyncCyclesFailed.WithLabelValues(src.ID, code).Inc()
		s.obs.RecordCycle(ctx, src.ID, "failed")
		log.Error("sync cycle failed", map[string]interface{}{
			"error":      err.Error(),
			"error_code": code,
		})
		return
	}

	outcome := string(res.Outcome)
	metrics.SyncCyclesTotal.WithLabelValues(src.ID, outcome).Inc()
	s.obs.RecordCycle(ctx, src.ID, outcome)

	if res.Outcome == engine.OutcomeDelivered {
		metrics.RowsDelivered.WithLabelValues(src.ID, sinkLabel(src)).Add(float64(res.Rows))
	}

	fields := map[string]interface{}{
		"outcome":     outcome,
		"rows":        res.Rows,
		"duration_ms": elapsed.Milliseconds(),
	}
	if res.ArtifactPath != "" {
		fields["artifact"] = res.ArtifactPath
	}
	log.Info("sync cycle finished", fields)
}

func sinkLabel(src config.SourceConfig) string {
	if src.DeliveryMode == config.DeliveryModeExport {
		return "export"
	}
	return src.Channel
}
