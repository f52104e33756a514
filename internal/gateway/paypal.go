package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// PayPal IPN constants.
const (
	PayPalNotifyValidate  = "_notify-validate"
	PayPalVerified        = "VERIFIED"
	PayPalStatusCompleted = "Completed"
)

// PayPalClient verifies IPN notifications by echoing them back to PayPal.
type PayPalClient struct {
	client    *resty.Client
	verifyURL string
}

// NewPayPalClient creates a PayPalClient. Every verification call is bounded
// by timeout.
func NewPayPalClient(verifyURL string, timeout time.Duration) *PayPalClient {
	return &PayPalClient{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "elearning-ipn-verifier"),
		verifyURL: verifyURL,
	}
}

// VerifyIPN posts the raw notification body back, unaltered and in its
// original field order, prefixed with cmd=_notify-validate, and reports
// whether PayPal answered VERIFIED. Transport failures and non-2xx answers
// return ErrUnavailable.
func (p *PayPalClient) VerifyIPN(ctx context.Context, raw []byte) (bool, error) {
	echo := "cmd=" + PayPalNotifyValidate
	if len(raw) > 0 {
		echo += "&" + string(raw)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(echo).
		Post(p.verifyURL)
	if err != nil {
		return false, fmt.Errorf("paypal verify: %v: %w", err, ErrUnavailable)
	}
	if resp.IsError() {
		return false, fmt.Errorf("paypal verify: status %d: %w", resp.StatusCode(), ErrUnavailable)
	}

	return strings.TrimSpace(resp.String()) == PayPalVerified, nil
}
