// Package notify broadcasts short messages to globally configured Shoutrrr
// URLs (ntfy, Discord, Slack, …).
//
// Sends run in the background and failures are only logged: a notification
// must never block or fail the action that triggered it.
package notify

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Broadcaster sends to every configured URL.
type Broadcaster struct {
	urls []string
	log  logrus.FieldLogger
	send func(url, body string) error
	wg   sync.WaitGroup
}

// NewBroadcaster creates a broadcaster for a comma-or-newline-separated
// URL list. An empty list yields a broadcaster that drops every message.
func NewBroadcaster(urls string, log logrus.FieldLogger) *Broadcaster {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broadcaster{
		urls: ParseURLs(urls),
		log:  log,
		send: shoutrrr.Send,
	}
}

// Enabled reports whether any URL is configured.
func (b *Broadcaster) Enabled() bool {
	return len(b.urls) > 0
}

// Notify sends title and message to all URLs in the background.
func (b *Broadcaster) Notify(title, message string) {
	if !b.Enabled() || title == "" {
		return
	}
	body := buildBody(title, message)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for _, u := range b.urls {
			if err := b.send(u, body); err != nil {
				b.log.WithError(err).WithField("url", maskURL(u)).Warn("notify: broadcast send failed")
			}
		}
	}()
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

// TestConnection sends a test message synchronously to every URL and
// returns all failures.
func (b *Broadcaster) TestConnection() error {
	if !b.Enabled() {
		return errors.New("notify: no broadcast URLs configured")
	}
	var errs error
	for _, u := range b.urls {
		if err := b.send(u, "FitRecs test: if you see this, notifications are working!"); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("broadcast %s: %w", maskURL(u), err))
		}
	}
	return errs
}

// buildBody constructs the message body.
func buildBody(title, message string) string {
	if message == "" {
		return title
	}
	return title + "\n" + message
}

// ParseURLs splits a comma-or-newline-separated URL string and trims whitespace.
func ParseURLs(urlsStr string) []string {
	urlsStr = strings.ReplaceAll(urlsStr, "\n", ",")
	parts := strings.Split(urlsStr, ",")
	var urls []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// maskURL masks credentials in a Shoutrrr URL for safe logging.
func maskURL(u string) string {
	if len(u) <= 5 {
		return "••••"
	}
	if len(u) <= 15 {
		return u[:5] + "••••"
	}
	return u[:15] + "••••"
}
