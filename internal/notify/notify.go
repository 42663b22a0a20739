// Package notify fans out player notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

// MaxTokensPerRequest is the largest batch of recipients sent in one webhook call.
const MaxTokensPerRequest = 100

// Notification titles and bodies sent on case transitions.
const (
	TitleNewCase    = "A new crime has been committed"
	BodyNewCase     = "Join the investigation now and try to solve the crime first!"
	TitleCaseSolved = "The case has been solved!"
	BodyCaseSolved  = "Thanks for playing. A new case will open soon."
)

type Notification struct {
	Title string
	Body  string
}

// Notifier delivers a notification. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// TokenSource lists the registered recipients.
type TokenSource interface {
	Tokens(ctx context.Context) ([]string, error)
}

type payload struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

// Webhook posts notifications to a push notification relay.
type Webhook struct {
	client    *http.Client
	url       string
	targetURL string
	tokens    TokenSource
	logger    *slog.Logger
}

func NewWebhook(url string, targetURL string, tokens TokenSource, logger *slog.Logger) *Webhook {
	return &Webhook{
		client:    &http.Client{Timeout: 10 * time.Second}, //nolint:mnd // relay timeout
		url:       url,
		targetURL: targetURL,
		tokens:    tokens,
		logger:    logger.With("source", "WebhookNotifier"),
	}
}

// Notify sends n to every registered token in batches of at most [MaxTokensPerRequest]. Every batch is attempted
// and the failures are joined.
func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	tokens, err := w.tokens.Tokens(ctx)
	if err != nil {
		return errors.Wrap(err, "list notification tokens")
	}
	var errs []error
	for start := 0; start < len(tokens); start += MaxTokensPerRequest {
		batch := tokens[start:min(start+MaxTokensPerRequest, len(tokens))]
		if err = w.send(ctx, n, batch); err != nil {
			errs = append(errs, err)
		}
	}
	w.logger.LogAttrs(ctx, slog.LevelInfo, "notification sent",
		slog.String("title", n.Title), slog.Int("recipients", len(tokens)), slog.Int("failed_batches", len(errs)))
	return errors.Join(errs...)
}

func (w *Webhook) send(ctx context.Context, n Notification, tokens []string) error {
	body, err := json.Marshal(payload{
		NotificationID: uuid.NewString(),
		Title:          n.Title,
		Body:           n.Body,
		TargetURL:      w.targetURL,
		Tokens:         tokens,
	})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post notification")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("notification relay rejected batch",
			slog.Int("status", resp.StatusCode), slog.Int("tokens", len(tokens)))
	}
	return nil
}

// Log writes notifications to the log instead of delivering them.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("source", "LogNotifier")}
}

func (l *Log) Notify(ctx context.Context, n Notification) error {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "notification", slog.String("title", n.Title), slog.String("body", n.Body))
	return nil
}
