// Package googleauth verifies Google ID tokens against the tokeninfo
// endpoint and extracts the identity claims sign-in needs.
package googleauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
)

const defaultEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// Identity is the verified subset of ID-token claims
type Identity struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// Options configures the Verifier
type Options struct {
	// Audience is the OAuth client ID tokens must be minted for
	Audience string

	// Endpoint overrides the tokeninfo URL, for tests
	Endpoint string

	Timeout time.Duration
}

// Verifier validates ID tokens remotely. The tokeninfo endpoint already
// checks Google's signature, so only aud, iss and exp are re-checked here.
type Verifier struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// New creates a Verifier with sane defaults
func New(o Options) *Verifier {
	if o.Endpoint == "" {
		o.Endpoint = defaultEndpoint
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return &Verifier{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("googleauth"),
		now:  time.Now,
	}
}

// Enabled reports whether an audience is configured
func (v *Verifier) Enabled() bool { return v.opts.Audience != "" }

type tokenInfo struct {
	Aud           string `json:"aud"`
	Iss           string `json:"iss"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

// Verify checks idToken and returns the identity it asserts
func (v *Verifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if !v.Enabled() {
		return Identity{}, perr.Unavailablef("google sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return Identity{}, perr.Unauthorizedf("missing google id token")
	}

	u := v.opts.Endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Identity{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "googleauth: new request")
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return Identity{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "googleauth: tokeninfo call")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	// tokeninfo returns 4xx for malformed or expired tokens
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return Identity{}, perr.Newf(perr.ErrorCodeUnavailable, "googleauth: tokeninfo status %d", resp.StatusCode)
		}
		return Identity{}, perr.Unauthorizedf("google token rejected")
	}

	var ti tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&ti); err != nil {
		return Identity{}, perr.Wrapf(err, perr.ErrorCodeJSON, "googleauth: decode tokeninfo")
	}

	if ti.Aud != v.opts.Audience {
		v.log.Warn().Str("aud", ti.Aud).Msg("google token audience mismatch")
		return Identity{}, perr.Unauthorizedf("google token audience mismatch")
	}
	if ti.Iss != "accounts.google.com" && ti.Iss != "https://accounts.google.com" {
		return Identity{}, perr.Unauthorizedf("google token issuer mismatch")
	}
	if exp, err := strconv.ParseInt(ti.Exp, 10, 64); err != nil || !v.now().Before(time.Unix(exp, 0)) {
		return Identity{}, perr.Unauthorizedf("google token expired")
	}
	if ti.Sub == "" || ti.Email == "" {
		return Identity{}, perr.Unauthorizedf("google token missing subject or email")
	}

	return Identity{
		Sub:     ti.Sub,
		Email:   strings.ToLower(ti.Email),
		Name:    ti.Name,
		Picture: ti.Picture,
	}, nil
}
