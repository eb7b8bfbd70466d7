// Package receipts validates store purchase tokens with the platform
// billing endpoints (Google Play, App Store) through a verifier service.
package receipts

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

// Platforms accepted by Verify. They match the CHECK constraint on
// subscription rows so a receipt can be stored as returned.
const (
	PlatformGooglePlay = "google_play"
	PlatformAppStore   = "app_store"
)

// Receipt is the verified state of one store purchase
type Receipt struct {
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	AutoRenew     bool      `json:"auto_renew"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
}

// Options configures the Verifier
type Options struct {
	// BaseURL points at the receipt-verifier service; empty disables the
	// adapter and every Verify call fails Unavailable
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Verifier exchanges purchase tokens for verified receipt state
type Verifier struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// New creates a Verifier with sane defaults
func New(o Options) *Verifier {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return &Verifier{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("receipts"),
	}
}

// Enabled reports whether a verifier endpoint is configured
func (v *Verifier) Enabled() bool { return v.opts.BaseURL != "" }

type verifyRequest struct {
	Platform      string `json:"platform"`
	PurchaseToken string `json:"purchase_token"`
	ProductID     string `json:"product_id"`
}

type verifyResponse struct {
	Valid   bool    `json:"valid"`
	Reason  string  `json:"reason,omitempty"`
	Receipt Receipt `json:"receipt"`
}

// Verify validates token against the platform store. An invalid or expired
// token comes back as a Validation error with reason RECEIPT_INVALID so the
// handler can surface it as a 400; infrastructure trouble is Unavailable.
func (v *Verifier) Verify(ctx context.Context, platform, token, productID string) (Receipt, error) {
	if !v.Enabled() {
		return Receipt{}, perr.Unavailablef("receipt verification is not configured")
	}
	if platform != PlatformGooglePlay && platform != PlatformAppStore {
		return Receipt{}, perr.InvalidArgf("receipts: unknown platform %q", platform)
	}
	if token == "" {
		return Receipt{}, perr.Reasoned(perr.ErrorCodeValidation, "RECEIPT_INVALID", "empty purchase token")
	}

	body, err := json.Marshal(verifyRequest{Platform: platform, PurchaseToken: token, ProductID: productID})
	if err != nil {
		return Receipt{}, perr.Wrapf(err, perr.ErrorCodeJSON, "receipts: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.opts.BaseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "receipts: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if v.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.opts.APIKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return Receipt{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "receipts: verifier call")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Receipt{}, perr.Newf(perr.ErrorCodeUnavailable, "receipts: verifier status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&vr); err != nil {
		return Receipt{}, perr.Wrapf(err, perr.ErrorCodeJSON, "receipts: decode response")
	}

	if !vr.Valid {
		v.log.Info().Str("platform", platform).Str("reason", vr.Reason).Msg("receipt rejected")
		return Receipt{}, perr.Reasoned(perr.ErrorCodeValidation, "RECEIPT_INVALID", "purchase token rejected by store")
	}
	if vr.Receipt.TransactionID == "" {
		return Receipt{}, perr.Newf(perr.ErrorCodeUnknown, "receipts: verifier omitted transaction id")
	}
	return vr.Receipt, nil
}
