// Package schedule runs periodic batch evaluations on cron schedules.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/receivers"
	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/robfig/cron/v3"
)

// RulePrefix marks a schedule target as a rule identifier instead of a stage.
const RulePrefix = "rule:"

// Schedule evaluates Targets whenever Spec fires. A target is a stage, or a
// rule identifier prefixed with RulePrefix.
type Schedule struct {
	Spec    string
	Targets []string
}

// ParseSchedule parses "<cron>=<target>[,<target>]", for example
// "*/15 * * * *=hr,written_test" or "@hourly=rule:bgv-complete".
func ParseSchedule(raw string) (Schedule, error) {
	spec, list, ok := strings.Cut(raw, "=")
	if !ok {
		return Schedule{}, fmt.Errorf("schedule %q must have the form <cron>=<stage>[,<stage>]", raw)
	}

	spec = strings.TrimSpace(spec)

	_, err := cron.ParseStandard(spec)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	targets := make([]string, 0)

	for _, target := range strings.Split(list, ",") {
		target = strings.TrimSpace(target)
		if target == "" || target == RulePrefix {
			continue
		}

		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return Schedule{}, fmt.Errorf("schedule %q has no stages", raw)
	}

	return Schedule{Spec: spec, Targets: targets}, nil
}

// ParseSchedules parses every raw schedule, reporting all failures together.
func ParseSchedules(raws []string) ([]Schedule, error) {
	schedules := make([]Schedule, 0, len(raws))

	var errs []error

	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		s, err := ParseSchedule(raw)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		schedules = append(schedules, s)
	}

	return schedules, errors.Join(errs...)
}

type Receiver struct {
	schedules    []Schedule
	orchestrator receivers.Orchestrator
	logger       *slog.Logger

	cron    *cron.Cron
	entries []cron.EntryID
	mu      sync.Mutex
}

func NewReceiver(logger *slog.Logger, orchestrator receivers.Orchestrator, schedules []Schedule) *Receiver {
	return &Receiver{
		schedules:    schedules,
		orchestrator: orchestrator,
		logger:       logger.With("module", "schedule_receiver"),
	}
}

func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.InfoContext(ctx, "starting schedule receiver", "schedules", len(r.schedules))

	cronLog := cronLogger{logger: r.logger}
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLog),
		cron.Recover(cronLog),
	))

	for _, s := range r.schedules {
		entryID, err := r.cron.AddFunc(s.Spec, func() {
			r.Sweep(ctx, s)
		})
		if err != nil {
			return fmt.Errorf("failed to add cron job %q: %w", s.Spec, err)
		}

		r.entries = append(r.entries, entryID)
		r.logger.InfoContext(ctx, "scheduled sweep", "cron", s.Spec, "targets", s.Targets, "entry_id", entryID)
	}

	r.cron.Start()

	return nil
}

// Stop halts the scheduler and waits for running sweeps or ctx, whichever ends first.
func (r *Receiver) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.InfoContext(ctx, "stopping schedule receiver")

	if r.cron == nil {
		return nil
	}

	done := r.cron.Stop()
	r.cron = nil
	r.entries = nil

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep evaluates each target of s once with the scheduled trigger. A failing
// target is logged and does not stop the others.
func (r *Receiver) Sweep(ctx context.Context, s Schedule) {
	for _, target := range s.Targets {
		req := transitions.Request{TriggerType: models.TriggerTypeScheduled}

		if ruleID, ok := strings.CutPrefix(target, RulePrefix); ok {
			req.RuleID = ruleID
		} else {
			req.FromStage = target
		}

		result, err := r.orchestrator.Evaluate(ctx, req)
		if err != nil {
			r.logger.ErrorContext(ctx, "scheduled sweep failed", "cron", s.Spec, "target", target, "error", err)

			continue
		}

		r.logger.InfoContext(ctx, "scheduled sweep completed",
			"cron", s.Spec,
			"target", target,
			"transitions", len(result.Transitions),
		)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
