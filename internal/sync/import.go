package sync

import (
	"context"
	"errors"

	"reviewsync/internal/client"
	"reviewsync/internal/review"
	"reviewsync/internal/sheet"

	"github.com/sirupsen/logrus"
)

// ImportInitial seeds an empty database from the workbooks: one client per
// "Client {n}" sheet (no password until an admin sets one), platforms from
// the URL declarations, and every review row with its mapped status. Safe to
// re-run; existing clients and platforms are reused.
func (e *Engine) ImportInitial(ctx context.Context) error {
	for i := 0; i < e.Docs.NumWorkbooks(); i++ {
		wb, err := e.Docs.Workbook(i)
		if err != nil {
			return err
		}
		for _, cs := range wb.ClientSheets() {
			if err := e.importSheet(ctx, cs); err != nil {
				return err
			}
		}
	}
	e.Log.Info("initial import completed")
	return nil
}

func (e *Engine) importSheet(ctx context.Context, cs *sheet.ClientSheet) error {
	clientID, err := e.Clients.Create(ctx, cs.Number, "")
	if err != nil {
		if !errors.Is(err, client.ErrDuplicateNumber) {
			return err
		}
		cl, err := e.Clients.ByNumber(ctx, cs.Number)
		if err != nil {
			return err
		}
		clientID = cl.ID
	}

	platformURLs, err := cs.Platforms()
	if err != nil {
		return err
	}
	platforms := make(map[int]*review.Platform)
	for num, u := range platformURLs {
		u := u
		p, err := e.Reviews.EnsurePlatform(ctx, clientID, num, &u)
		if err != nil {
			return err
		}
		platforms[num] = p
	}

	rowsByPlatform, err := cs.Reviews()
	if err != nil {
		return err
	}
	imported := 0
	for num, rows := range rowsByPlatform {
		p := platforms[num]
		if p == nil {
			// Review section without a URL declaration up top.
			p, err = e.Reviews.EnsurePlatform(ctx, clientID, num, nil)
			if err != nil {
				return err
			}
			platforms[num] = p
		}
		for _, r := range rows {
			var photo *string
			if r.PhotoLink != "" {
				link := r.PhotoLink
				photo = &link
			}
			rec := review.Review{
				ClientID:       clientID,
				PlatformID:     p.ID,
				Text:           r.Text,
				Date:           r.Date,
				ManagerComment: r.Comment,
				Status:         r.Status(),
				PhotoLink:      photo,
			}
			if err := e.Reviews.Create(ctx, &rec); err != nil {
				return err
			}
			imported++
		}
	}

	e.Log.WithFields(logrus.Fields{"client": cs.Number, "reviews": imported}).
		Info("client sheet imported")
	return nil
}
