package poller

import (
	"context"
	"log/slog"
	"time"
)

// Task is one poll-and-render pass. It owns its own error reporting; the
// poller only schedules it.
type Task func(ctx context.Context)

// Poller runs a Task immediately and then every Interval. A manual Trigger
// runs an extra pass without resetting the schedule. Passes never overlap:
// a slow pass delays the next tick rather than stacking another one.
type Poller struct {
	name     string
	interval time.Duration
	task     Task
	trigger  chan struct{}
}

func New(name string, interval time.Duration, task Task) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		task:     task,
		trigger:  make(chan struct{}, 1),
	}
}

// Name identifies the poller in logs.
func (p *Poller) Name() string {
	return p.name
}

// Trigger requests an immediate pass. Requests made while one is already
// pending collapse into it. Returns false if a pass was already queued.
func (p *Poller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("poller started", "poller", p.name, "interval", p.interval)
	p.task(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller stopped", "poller", p.name)
			return
		case <-ticker.C:
			p.task(ctx)
		case <-p.trigger:
			slog.Debug("poller triggered", "poller", p.name)
			p.task(ctx)
		}
	}
}
