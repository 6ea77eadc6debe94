// Package pending collects a user's in-progress edits so they can be applied
// to the database as one batch on explicit commit.
package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reviewsync/internal/review"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindInsert         Kind = "insert"
	KindUpdate         Kind = "update"
	KindUpdateMultiple Kind = "update_multiple"
)

type Field string

const (
	FieldStatus Field = "status"
	FieldText   Field = "text"
)

// Insert carries the fields of a not-yet-created review.
type Insert struct {
	PlatformNumber int    `json:"platform_number"`
	Text           string `json:"text"`
	Date           string `json:"date"`
}

// Change is one staged edit. ReviewText is only used for the commit summary
// lines shown back to the user.
type Change struct {
	Kind       Kind              `json:"kind"`
	Insert     *Insert           `json:"insert,omitempty"`
	ReviewID   uint64            `json:"review_id,omitempty"`
	Field      Field             `json:"field,omitempty"`
	Value      string            `json:"value,omitempty"`
	Updates    map[string]string `json:"updates,omitempty"`
	ReviewText string            `json:"review_text,omitempty"`
}

// List is the ordered staged-change list of a single session. It is owned by
// exactly one session and therefore unlocked; staging the same field twice
// keeps both entries and the later one wins on apply.
type List struct {
	changes []Change
}

func (l *List) Stage(c Change) { l.changes = append(l.changes, c) }

func (l *List) Changes() []Change { return l.changes }

func (l *List) Len() int { return len(l.changes) }

func (l *List) DiscardAll() { l.changes = nil }

// Registry hands out per-client lists. Only the map is shared across
// requests; each list stays session-confined.
type Registry struct {
	mu    sync.Mutex
	lists map[uint64]*List
}

func NewRegistry() *Registry {
	return &Registry{lists: make(map[uint64]*List)}
}

func (r *Registry) Get(clientID uint64) *List {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lists[clientID]
	if !ok {
		l = &List{}
		r.lists[clientID] = l
	}
	return l
}

func (r *Registry) Reset(clientID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists, clientID)
}

// Aggregator applies a staged list to the store.
type Aggregator struct {
	Reviews *review.Store
	Log     *logrus.Entry
	Now     func() time.Time
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ApplyAll runs every staged change in staging order and returns one summary
// line per change. An empty list performs no writes and returns no lines. The
// list is cleared only after every change applied cleanly.
func (a *Aggregator) ApplyAll(ctx context.Context, clientID uint64, l *List) ([]string, error) {
	if l.Len() == 0 {
		return nil, nil
	}

	var lines []string
	for _, c := range l.Changes() {
		switch c.Kind {
		case KindInsert:
			if c.Insert == nil {
				continue
			}
			date := c.Insert.Date
			if date == "" {
				date = a.now().Format("2006-01-02 15:04:05")
			}
			p, err := a.Reviews.PlatformByNumber(ctx, clientID, c.Insert.PlatformNumber)
			if err == nil {
				r := review.Review{
					ClientID:   clientID,
					PlatformID: p.ID,
					Text:       c.Insert.Text,
					Date:       date,
					Status:     review.StatusPending,
				}
				if err := a.Reviews.Create(ctx, &r); err != nil {
					return lines, err
				}
			} else if a.Log != nil {
				a.Log.WithFields(logrus.Fields{
					"client":   clientID,
					"platform": c.Insert.PlatformNumber,
				}).Warn("staged insert for unknown platform, skipped")
			}
			lines = append(lines, fmt.Sprintf("🆕 %s - added", c.Insert.Text))

		case KindUpdate:
			if c.ReviewID == 0 {
				continue
			}
			switch c.Field {
			case FieldStatus:
				if c.Value != review.StatusApproved && c.Value != review.StatusRejected {
					continue
				}
				if err := a.Reviews.UpdateStatus(ctx, c.ReviewID, c.Value); err != nil {
					return lines, err
				}
				if c.Value == review.StatusApproved {
					lines = append(lines, fmt.Sprintf("🟢 %s - approved", c.ReviewText))
				} else {
					lines = append(lines, fmt.Sprintf("🔴 %s - rejected", c.ReviewText))
				}
			case FieldText:
				if err := a.Reviews.UpdateText(ctx, c.ReviewID, c.Value); err != nil {
					return lines, err
				}
				lines = append(lines, fmt.Sprintf("✏️ %s - updated", c.ReviewText))
			}

		case KindUpdateMultiple:
			if c.ReviewID == 0 {
				continue
			}
			if err := a.Reviews.UpdatePhoto(ctx, c.ReviewID, c.Updates["photo_link"]); err != nil {
				return lines, err
			}
			lines = append(lines, fmt.Sprintf("📷 %s - photo attached", c.ReviewText))
		}
	}

	l.DiscardAll()
	return lines, nil
}
