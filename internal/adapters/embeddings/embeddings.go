// Package embeddings produces text embeddings for semantic group search
// through an OpenAI-compatible endpoint.
//
// Embeddings are strictly best-effort: when the adapter is unconfigured or
// the vendor is down, Embed returns nil and callers fall back to trigram
// search alone. Nothing in the write path blocks on this service.
package embeddings

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
	defaultEndpoint = "https://api.openai.com/v1/embeddings"
	defaultModel    = "text-embedding-3-small"

	// Dim is the vector width the groups.search_embedding column stores
	Dim = 1536
)

// Options configures the Client
type Options struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Client calls the embeddings endpoint
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.Endpoint == "" {
		o.Endpoint = defaultEndpoint
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("embeddings"),
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool { return c.opts.APIKey != "" }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the vector for text, or nil when the adapter is disabled or
// the text is empty. Vendor failure is an error; callers log and move on.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.Enabled() || text == "" {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: c.opts.Model, Input: []string{text}})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "embeddings: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "embeddings: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "embeddings: vendor call")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, perr.Newf(perr.ErrorCodeUnavailable, "embeddings: vendor status %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<22)).Decode(&er); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "embeddings: decode response")
	}
	if er.Error != nil {
		return nil, perr.Newf(perr.ErrorCodeUnavailable, "embeddings: vendor error: %s", er.Error.Message)
	}
	if len(er.Data) == 0 || len(er.Data[0].Embedding) == 0 {
		return nil, perr.Newf(perr.ErrorCodeUnknown, "embeddings: empty vector in response")
	}

	vec := er.Data[0].Embedding
	if len(vec) != Dim {
		c.log.Warn().Int("got", len(vec)).Int("want", Dim).Msg("embedding width mismatch, dropping")
		return nil, nil
	}
	return vec, nil
}
