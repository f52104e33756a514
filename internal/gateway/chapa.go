package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChapaStatusSuccess is the status Chapa reports for a paid transaction.
const ChapaStatusSuccess = "success"

// ChapaVerification is the relevant part of Chapa's verify response.
type ChapaVerification struct {
	Status string
	// TransactionID is Chapa's identifier of the transaction, empty when
	// the response did not carry one.
	TransactionID string
	Raw           json.RawMessage
}

type chapaVerifyResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		Status    string          `json:"status"`
		ID        json.RawMessage `json:"id"`
		Reference string          `json:"reference"`
		TxRef     string          `json:"tx_ref"`
	} `json:"data"`
}

// ChapaClient queries Chapa's transaction verification API.
type ChapaClient struct {
	client *resty.Client
}

// NewChapaClient creates a ChapaClient against baseURL (e.g.
// https://api.chapa.co/v1) authenticated with the secret key.
func NewChapaClient(baseURL, secretKey string, timeout time.Duration) *ChapaClient {
	return &ChapaClient{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetAuthToken(secretKey).
			SetHeader("Accept", "application/json"),
	}
}

// Verify fetches the status of a transaction by reference. Transport
// failures and non-2xx answers return ErrUnavailable.
func (c *ChapaClient) Verify(ctx context.Context, txRef string) (*ChapaVerification, error) {
	var body chapaVerifyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/transaction/verify/" + url.PathEscape(txRef))
	if err != nil {
		return nil, fmt.Errorf("chapa verify: %v: %w", err, ErrUnavailable)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chapa verify: status %d: %w", resp.StatusCode(), ErrUnavailable)
	}

	return &ChapaVerification{
		Status:        body.Data.Status,
		TransactionID: rawID(body.Data.ID),
		Raw:           json.RawMessage(resp.Body()),
	}, nil
}

// rawID renders a JSON string or number as a plain string.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
