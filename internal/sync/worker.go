package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Worker drives the engine on a fixed wall-clock interval. The only
// cancellation signal is process shutdown; an in-flight cycle may be
// abandoned safely because cycles are idempotent.
type Worker struct {
	Engine   *Engine
	Interval time.Duration
	Log      *logrus.Entry
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Log.WithFields(logrus.Fields{"interval": w.Interval.String()}).Info("sync worker started")

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("sync worker stopped")
			return
		case <-ticker.C:
			w.Engine.RunCycle(ctx)
		}
	}
}
