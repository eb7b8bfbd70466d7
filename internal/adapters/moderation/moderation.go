// Package moderation screens user content through an external safety
// vendor. Unconfigured deployments allow everything; human review through
// the reports pipeline is the backstop either way.
package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
)

// Verdict is the vendor's judgement of one piece of content
type Verdict struct {
	Allowed bool
	// Labels carries the categories that fired, for the moderation queue
	Labels []string
}

// Options configures the Client
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client screens text and images
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("moderation"),
	}
}

// Enabled reports whether a vendor endpoint is configured
func (c *Client) Enabled() bool { return c.opts.BaseURL != "" }

type checkRequest struct {
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	ImageB64 string `json:"image_b64,omitempty"`
}

type checkResponse struct {
	Flagged bool     `json:"flagged"`
	Labels  []string `json:"labels"`
}

// CheckText screens a caption or name. Vendor failure allows the content;
// screening never blocks a legitimate write.
func (c *Client) CheckText(ctx context.Context, text string) (Verdict, error) {
	if !c.Enabled() || text == "" {
		return Verdict{Allowed: true}, nil
	}
	return c.check(ctx, checkRequest{Kind: "text", Text: text})
}

// CheckImage screens raw image bytes
func (c *Client) CheckImage(ctx context.Context, img []byte) (Verdict, error) {
	if !c.Enabled() || len(img) == 0 {
		return Verdict{Allowed: true}, nil
	}
	return c.check(ctx, checkRequest{Kind: "image", ImageB64: base64.StdEncoding.EncodeToString(img)})
}

func (c *Client) check(ctx context.Context, cr checkRequest) (Verdict, error) {
	body, err := json.Marshal(cr)
	if err != nil {
		return Verdict{Allowed: true}, perr.Wrapf(err, perr.ErrorCodeJSON, "moderation: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/check", bytes.NewReader(body))
	if err != nil {
		return Verdict{Allowed: true}, perr.Wrapf(err, perr.ErrorCodeUnknown, "moderation: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("moderation vendor unreachable, allowing content")
		return Verdict{Allowed: true}, nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("moderation vendor error, allowing content")
		return Verdict{Allowed: true}, nil
	}

	var out checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return Verdict{Allowed: true}, perr.Wrapf(err, perr.ErrorCodeJSON, "moderation: decode response")
	}
	return Verdict{Allowed: !out.Flagged, Labels: out.Labels}, nil
}
