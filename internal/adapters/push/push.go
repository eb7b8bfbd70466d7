// Package push is the HTTP client for the push-notification vendor.
//
// Delivery is best-effort everywhere in the service: callers either ignore
// the returned error after logging or go through tasks.Detach, so a slow
// vendor never holds up a request.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultMaxRetry  = 3
	defaultRetryBase = 250 * time.Millisecond
)

// Notification is the visible part of a push message
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is one send request; exactly one of Tokens or Topic is set
type Message struct {
	Tokens       []string          `json:"tokens,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`

	// CollapseKey de-duplicates repeated sends on the vendor side
	CollapseKey string `json:"collapse_key,omitempty"`
}

// Options configures the Client
type Options struct {
	BaseURL   string
	ServerKey string
	Timeout   time.Duration

	MaxRetries int
	RetryBase  time.Duration
}

// Client posts messages to the vendor gateway with retry on transient errors
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("push"),
		sleep: time.Sleep,
	}
}

// Enabled reports whether a vendor endpoint is configured; disabled clients
// drop every message silently so local stacks need no vendor
func (c *Client) Enabled() bool { return c.opts.BaseURL != "" }

// SendToTokens delivers msg to explicit device tokens
func (c *Client) SendToTokens(ctx context.Context, tokens []string, n Notification, data map[string]string, collapseKey string) error {
	if len(tokens) == 0 {
		return nil
	}
	return c.send(ctx, Message{Tokens: tokens, Notification: n, Data: data, CollapseKey: collapseKey})
}

// SendToTopic delivers msg to a vendor-side topic subscription
func (c *Client) SendToTopic(ctx context.Context, topic string, n Notification, data map[string]string) error {
	if topic == "" {
		return perr.InvalidArgf("push: empty topic")
	}
	return c.send(ctx, Message{Topic: topic, Notification: n, Data: data})
}

func (c *Client) send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		c.log.Debug().Msg("push disabled, message dropped")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "push: marshal message")
	}

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/send", bytes.NewReader(body))
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "push: new request")
		}
		req.Header.Set("Content-Type", "application/json")
		if c.opts.ServerKey != "" {
			req.Header.Set("Authorization", "key="+c.opts.ServerKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= c.opts.MaxRetries {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "push: send failed")
			}
			c.sleep(c.backoff(attempt))
			continue
		}

		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()

		switch {
		case status < 300:
			return nil
		case status == http.StatusTooManyRequests || status >= 500:
			if attempt >= c.opts.MaxRetries {
				return perr.Newf(perr.ErrorCodeUnavailable, "push: vendor status %d", status)
			}
			c.log.Warn().Int("status", status).Int("attempt", attempt).Msg("push transient error retrying")
			c.sleep(c.backoff(attempt))
		default:
			return perr.Newf(perr.ErrorCodeUnknown, "push: vendor rejected with status %d", status)
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
