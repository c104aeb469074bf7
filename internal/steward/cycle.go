package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotReady is returned when the API never answered within the deadline.
var ErrNotReady = errors.New("realm API not ready")

// RunCycle executes one observe → triage → decide → act cycle and records it.
func RunCycle(observer *Observer, actor *Actor, mem *CycleMemory) (*Decision, error) {
	slog.Info("steward cycle starting")

	snap, err := observer.Observe()
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	health := Triage(snap)
	slog.Info("observation complete",
		"day", snap.Status.Day,
		"treasury", fmt.Sprintf("%.0f", snap.Status.Treasury),
		"hotspots", len(health.Hotspots),
		"flashpoints", len(health.Flashpoints),
		"crisis", health.CrisisLevel,
	)

	decision := Decide(snap, health)
	rec := CycleRecord{
		Day:         snap.Status.Day,
		Action:      decision.Action,
		CrisisLevel: health.CrisisLevel,
		Rationale:   decision.Rationale,
	}
	defer func() {
		mem.Record(rec)
		mem.Save()
	}()

	if decision.Intervention == nil {
		slog.Info("steward cycle complete, no intervention", "rationale", decision.Rationale)
		return decision, nil
	}
	rec.Target = decision.Intervention.Target()

	if _, err := actor.Act(decision.Intervention); err != nil {
		rec.Error = err.Error()
		return decision, fmt.Errorf("act: %w", err)
	}
	slog.Info("intervention executed",
		"kind", decision.Intervention.Kind,
		"target", rec.Target,
		"rationale", decision.Rationale,
	)
	return decision, nil
}

// WaitForAPI polls the status endpoint with exponential backoff until it
// responds or timeout passes.
func WaitForAPI(ctx context.Context, observer *Observer, timeout time.Duration) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(timeout)

	for {
		if observer.Ready() {
			slog.Info("realm API is ready")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrNotReady, timeout)
		}
		slog.Info("realm API not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
