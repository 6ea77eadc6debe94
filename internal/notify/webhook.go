// Package notify delivers coalesced review notifications to the
// conversational front end, which lives outside this service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Webhook posts notifications to the bot gateway as JSON.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (w *Webhook) Notify(ctx context.Context, chatID int64, text string) error {
	b, err := json.Marshal(payload{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bot gateway returned %s", resp.Status)
	}
	return nil
}

// Log is the fallback notifier used when no gateway is configured; it only
// records what would have been sent.
type Log struct {
	Entry *logrus.Entry
}

func (l *Log) Notify(_ context.Context, chatID int64, text string) error {
	l.Entry.WithFields(logrus.Fields{"chat": chatID, "text": text}).Info("notification")
	return nil
}
