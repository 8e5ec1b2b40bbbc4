// Package sweeper periodically purges expired records from stores that
// cannot expire them natively. Expiry is always enforced at read time, so a
// sweep only reclaims space.
package sweeper

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/layer-3/walletauth/internal/metrics"
	"github.com/layer-3/walletauth/ports"
	"github.com/sirupsen/logrus"
)

// Worker runs every registered sweeper on a fixed interval
type Worker struct {
	targets  map[string]ports.Sweeper
	interval time.Duration
	log      logrus.FieldLogger
}

// New creates a sweep worker. Targets are keyed by a name used in logs and
// metrics.
func New(targets map[string]ports.Sweeper, interval time.Duration, log logrus.FieldLogger) *Worker {
	return &Worker{
		targets:  targets,
		interval: interval,
		log:      log.WithField("component", "sweeper"),
	}
}

// SweepOnce runs every target once and returns the total number of records
// removed. A failing target does not stop the others.
func (w *Worker) SweepOnce(ctx context.Context) (int, error) {
	names := make([]string, 0, len(w.targets))
	for name := range w.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		total int
		errs  []error
	)
	for _, name := range names {
		removed, err := w.targets[name].Sweep(ctx)
		if err != nil {
			w.log.WithError(err).WithField("store", name).Error("failed to sweep expired records")
			errs = append(errs, err)
			continue
		}
		if removed > 0 {
			metrics.SweptRecords.WithLabelValues(name).Add(float64(removed))
			w.log.WithFields(logrus.Fields{"store": name, "removed": removed}).Debug("swept expired records")
		}
		total += removed
	}

	return total, errors.Join(errs...)
}

// Run sweeps on every tick until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	if w.interval <= 0 || len(w.targets) == 0 {
		return
	}

	w.log.WithField("interval", w.interval).Debug("starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// give a sweep at most half the interval
			sweepCtx, cancel := context.WithTimeout(ctx, w.interval/2)
			w.SweepOnce(sweepCtx)
			cancel()

		case <-ctx.Done():
			w.log.Info("stopping sweep worker")
			return
		}
	}
}
