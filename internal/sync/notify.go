package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a coalesced message to a client's bound chat session.
// Delivery is best-effort; failures are logged and never retried.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

type schedKey struct {
	ClientID   uint64
	PlatformID uint64
}

type pendingNote struct {
	firstSeen time.Time
	diff      int64
}

// Scheduler coalesces bursts of new reviews into one notification per
// (client, platform). State lives for the process lifetime only; a restart
// merely delays notifications, it cannot corrupt review data.
type Scheduler struct {
	Window   time.Duration
	Notifier Notifier
	Log      *logrus.Entry
	Now      func() time.Time

	last    map[schedKey]int64
	pending map[schedKey]*pendingNote
}

func NewScheduler(window time.Duration, notifier Notifier, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		Window:   window,
		Notifier: notifier,
		Log:      log,
		Now:      time.Now,
		last:     make(map[schedKey]int64),
		pending:  make(map[schedKey]*pendingNote),
	}
}

// Observe feeds one (client, platform) new-review count from the current
// reconciliation cycle. A count drop (reviews approved before the
// notification fired) absorbs silently; a rise starts or refreshes a pending
// record, and once the record has aged past the debounce window a single
// notification reporting the latest diff is flushed.
func (s *Scheduler) Observe(ctx context.Context, clientID, platformID uint64, platformNumber int, chatID int64, count int64) {
	k := schedKey{ClientID: clientID, PlatformID: platformID}
	now := s.Now()

	diff := count - s.last[k]
	if diff <= 0 {
		delete(s.pending, k)
		s.last[k] = count
		return
	}

	p, ok := s.pending[k]
	if !ok {
		s.pending[k] = &pendingNote{firstSeen: now, diff: diff}
		return
	}

	p.diff = diff
	if now.Sub(p.firstSeen) < s.Window {
		return
	}

	text := fmt.Sprintf("%d new reviews appeared on PLATFORM %d.", p.diff, platformNumber)
	if err := s.Notifier.Notify(ctx, chatID, text); err != nil {
		s.Log.WithFields(logrus.Fields{
			"client":   clientID,
			"platform": platformNumber,
			"chat":     chatID,
		}).WithError(err).Warn("notification delivery failed")
	}
	delete(s.pending, k)
	s.last[k] = count
}
