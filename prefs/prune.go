/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically forgets players who haven't changed a preference
// within the retention window.
type Pruner struct {
	store     Store
	retention time.Duration
	logf      func(format string, args ...any)
	cron      *cron.Cron
}

// NewPruner schedules pruning on a standard cron spec or descriptor such as
// "@daily". Call Start to begin running it.
func NewPruner(store Store, spec string, retention time.Duration, logf func(format string, args ...any)) (*Pruner, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("invalid retention (must be positive): %s", retention)
	}

	if logf == nil {
		logf = func(string, ...any) {}
	}

	p := &Pruner{
		store:     store,
		retention: retention,
		logf:      logf,
		cron:      cron.New(),
	}

	if _, err := p.cron.AddFunc(spec, func() { p.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}

	return p, nil
}

// Run prunes once, immediately.
func (p *Pruner) Run(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		p.logf("PREFS: Prune failed: %v", err)

		return
	}

	p.logf("PREFS: Pruned %d stale preference(s) older than %s", n, cutoff.Format(time.RFC3339))
}

func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}
