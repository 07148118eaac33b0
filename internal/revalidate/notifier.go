// Package revalidate tells the public site which cached pages to rebuild
// after content changes. Delivery is best effort: failures are logged and
// never reach the mutation that triggered them.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// Notification names the pages affected by a change.
type Notification struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	LessonID string `json:"lessonID,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type payload struct {
	Notification
	Secret string `json:"secret,omitempty"`
}

// Notifier posts notifications to the site's revalidation endpoint.
type Notifier struct {
	url      string
	token    string
	client   *http.Client
	attempts uint
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewNotifier returns a Notifier for endpoint. An empty endpoint disables
// delivery. Each notification is tried at most attempts times, each try
// bounded by timeout.
func NewNotifier(endpoint, token string, attempts uint, timeout time.Duration, logger *slog.Logger) *Notifier {
	if attempts == 0 {
		attempts = 1
	}
	return &Notifier{
		url:      endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
		timeout:  timeout,
		logger:   logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (n *Notifier) Enabled() bool { return n.url != "" }

// Notify delivers in the background. It returns immediately.
func (n *Notifier) Notify(ctx context.Context, note Notification) {
	if !n.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Send(ctx, note); err != nil {
			n.logger.Warn("revalidation failed", "type", note.Type, "id", note.ID, "lesson_id", note.LessonID, "error", err)
			return
		}
		n.logger.Debug("revalidation sent", "type", note.Type, "reason", note.Reason)
	}()
}

// Wait blocks until background deliveries have finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// Send delivers synchronously with bounded retries. Client errors (4xx)
// are not retried.
func (n *Notifier) Send(ctx context.Context, note Notification) error {
	if !n.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload{Notification: note, Secret: n.token})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	return retry.Do(
		func() error { return n.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(n.attempts),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revalidation: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("revalidation endpoint returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Unrecoverable(fmt.Errorf("revalidation endpoint returned %d", resp.StatusCode))
	}
	return nil
}
