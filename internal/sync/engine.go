// Package sync reconciles the staff-edited workbooks with the database:
// reviews typed into a sheet are imported, reviews added through the bot are
// exported back, and sheet-side approvals are promoted into the database.
package sync

import (
	"context"
	"time"

	"reviewsync/internal/client"
	"reviewsync/internal/review"
	"reviewsync/internal/sheet"

	"github.com/sirupsen/logrus"
)

// reviewKey matches a review across the two stores. There is no shared
// surrogate id: the platform number plus the displayed text and date string
// is the identity. Editing the text changes the key, so an edited review
// looks new on the next cycle; terminal statuses are never re-exported,
// which keeps that churn from looping.
type reviewKey struct {
	Platform int
	Text     string
	Date     string
}

type docEntry struct {
	Status  string
	Comment string
	Photo   string
}

// Engine runs the periodic bidirectional diff between every configured
// workbook and the database. One cycle is idempotent: re-running with no
// external change produces no writes, because every write target comes from
// a set difference that empties once applied. A crash mid-cycle leaves a
// partial migration the next cycle completes.
type Engine struct {
	Docs    *sheet.Adapter
	Clients *client.Service
	Reviews *review.Store
	Sched   *Scheduler
	Log     *logrus.Entry
	Now     func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RunCycle processes every workbook and then recomputes new-review counts
// for the notification scheduler. No error aborts the cycle; unreachable
// documents and malformed sections are logged and skipped until next time.
func (e *Engine) RunCycle(ctx context.Context) {
	for i := 0; i < e.Docs.NumWorkbooks(); i++ {
		wb, err := e.Docs.Workbook(i)
		if err != nil {
			continue // open failure already logged by the adapter
		}
		dirty := false
		for _, cs := range wb.ClientSheets() {
			cl, err := e.Clients.ByNumber(ctx, cs.Number)
			if err != nil {
				continue // sheet without a matching client
			}
			wrote, err := e.reconcile(ctx, cs, cl)
			// Rows inserted before a failure must still reach disk, or the
			// next cycle's diff sees them as exported and never retries.
			dirty = dirty || wrote
			if err != nil {
				e.Log.WithFields(logrus.Fields{
					"workbook": wb.Path(),
					"client":   cs.Number,
				}).WithError(err).Warn("reconcile failed, skipping client this cycle")
				continue
			}
		}
		if dirty {
			if err := wb.Save(); err != nil {
				e.Log.WithFields(logrus.Fields{"workbook": wb.Path()}).
					WithError(err).Warn("workbook save failed")
				// Drop the handle; the next cycle reopens from disk and
				// redoes the unsaved writes.
				e.Docs.Invalidate(wb.Path())
			}
		}
	}

	e.notifyPass(ctx)
}

// reconcile runs the diff-and-merge for one client sheet. All operations
// against a single client are serialized within the cycle; the computed diff
// would be invalidated by interleaved writes to the same client's rows.
// Returns whether any document rows were inserted.
func (e *Engine) reconcile(ctx context.Context, cs *sheet.ClientSheet, cl *client.Client) (bool, error) {
	platformURLs, err := cs.Platforms()
	if err != nil {
		return false, err
	}
	rowsByPlatform, err := cs.Reviews()
	if err != nil {
		return false, err
	}

	// Lazily create any platform the document references but the database
	// does not know yet.
	platforms := make(map[int]*review.Platform)
	for num, u := range platformURLs {
		u := u
		p, err := e.Reviews.EnsurePlatform(ctx, cl.ID, num, &u)
		if err != nil {
			return false, err
		}
		platforms[num] = p
	}
	for num := range rowsByPlatform {
		if _, ok := platforms[num]; ok {
			continue
		}
		p, err := e.Reviews.EnsurePlatform(ctx, cl.ID, num, nil)
		if err != nil {
			return false, err
		}
		platforms[num] = p
	}

	// Document snapshot. Duplicate (platform, text, date) rows collapse to
	// one logical review, the later row winning.
	docKeys := make(map[reviewKey]docEntry)
	for num, rows := range rowsByPlatform {
		for _, r := range rows {
			k := reviewKey{Platform: num, Text: r.Text, Date: r.Date}
			docKeys[k] = docEntry{Status: r.Status(), Comment: r.Comment, Photo: r.PhotoLink}
		}
	}

	// Database snapshot.
	stored, err := e.Reviews.ByClient(ctx, cl.ID)
	if err != nil {
		return false, err
	}
	storeKeys := make(map[reviewKey]review.ClientReview, len(stored))
	for _, r := range stored {
		storeKeys[reviewKey{Platform: r.PlatformNumber, Text: r.Text, Date: r.Date}] = r
	}

	// Document-only: import into the database with the document's status.
	for k, d := range docKeys {
		if _, ok := storeKeys[k]; ok {
			continue
		}
		p := platforms[k.Platform]
		if p == nil {
			continue
		}
		var photo *string
		if d.Photo != "" {
			photo = &d.Photo
		}
		r := review.Review{
			ClientID:       cl.ID,
			PlatformID:     p.ID,
			Text:           k.Text,
			Date:           k.Date,
			ManagerComment: d.Comment,
			Status:         d.Status,
			PhotoLink:      photo,
		}
		if err := e.Reviews.Create(ctx, &r); err != nil {
			return false, err
		}
	}

	// Store-only: export to the document, but only non-terminal entries.
	// Approved/rejected reviews without a document counterpart are either
	// already synced or were removed by staff; re-exporting them would loop.
	wrote := false
	for k, r := range storeKeys {
		if _, ok := docKeys[k]; ok {
			continue
		}
		if r.Status != review.StatusPending && r.Status != review.StatusNew {
			continue
		}
		var photo string
		if r.PhotoLink != nil {
			photo = *r.PhotoLink
		}
		// The stored date goes out verbatim so the exported row carries the
		// same identity and the diff empties on the next cycle.
		row := sheet.Row{
			Origin:     sheet.OriginClient,
			Date:       r.Date,
			StatusCell: sheet.SymbolPending,
			Text:       r.Text,
			PhotoLink:  photo,
		}
		if err := cs.InsertRow(k.Platform, row); err != nil {
			e.Log.WithFields(logrus.Fields{
				"client":   cl.Number,
				"platform": k.Platform,
			}).WithError(err).Warn("review export failed")
			continue
		}
		wrote = true
	}

	// Intersection: promote terminal document statuses into the database.
	// One-way only; database-side edits reach the document through the
	// export path above, never through this one.
	for k, d := range docKeys {
		r, ok := storeKeys[k]
		if !ok {
			continue
		}
		if !review.Terminal(d.Status) || review.Terminal(r.Status) {
			continue
		}
		if err := e.Reviews.UpdateStatus(ctx, r.ID, d.Status); err != nil {
			return wrote, err
		}
		if d.Comment != "" && r.ManagerComment == "" {
			if err := e.Reviews.UpdateComment(ctx, r.ID, d.Comment); err != nil {
				return wrote, err
			}
		}
	}

	// Sweep photo packs that have not reached the document yet.
	packs, err := e.Reviews.UnsyncedPhotoPacks(ctx, cl.ID)
	if err != nil {
		return wrote, err
	}
	for _, pack := range packs {
		num := 0
		for n, p := range platforms {
			if p.ID == pack.PlatformID {
				num = n
				break
			}
		}
		if num == 0 {
			n, err := e.Reviews.PlatformNumber(ctx, pack.PlatformID)
			if err != nil {
				e.Log.WithFields(logrus.Fields{"pack": pack.ID}).
					WithError(err).Warn("photo pack platform lookup failed")
				continue
			}
			num = n
		}
		row := sheet.Row{
			Origin:    sheet.OriginPhotoPack,
			Date:      e.now().Format("2006-01-02 15:04:05"),
			PhotoLink: pack.FolderLink,
		}
		if err := cs.InsertRow(num, row); err != nil {
			e.Log.WithFields(logrus.Fields{"pack": pack.ID}).
				WithError(err).Warn("photo pack export failed")
			continue
		}
		wrote = true
		if err := e.Reviews.MarkPhotoPackSynced(ctx, pack.ID); err != nil {
			return wrote, err
		}
	}

	return wrote, nil
}

// notifyPass feeds the scheduler the current new-review counts for every
// client with a bound session.
func (e *Engine) notifyPass(ctx context.Context) {
	if e.Sched == nil {
		return
	}
	clients, err := e.Clients.Authorized(ctx)
	if err != nil {
		e.Log.WithError(err).Warn("authorized client listing failed")
		return
	}
	for _, cl := range clients {
		if cl.ChatID == nil {
			continue
		}
		counts, err := e.Reviews.NewCounts(ctx, cl.ID)
		if err != nil {
			e.Log.WithFields(logrus.Fields{"client": cl.Number}).
				WithError(err).Warn("new count query failed")
			continue
		}
		for _, c := range counts {
			e.Sched.Observe(ctx, cl.ID, c.PlatformID, c.PlatformNumber, *cl.ChatID, c.Count)
		}
	}
}
