// Package payment talks to the Paystack transaction API.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured = errors.New("payment gateway is not configured")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Gateway transaction outcomes reported by Verify.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// SetupParams are handed to the inline checkout widget.
type SetupParams struct {
	Key              string         `json:"key"`
	Email            string         `json:"email"`
	AmountMinorUnits int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Reference        string         `json:"reference"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	AuthorizationURL string         `json:"authorizationUrl,omitempty"`
	AccessCode       string         `json:"accessCode,omitempty"`
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	Reference        string
	Status           string
	AmountMinorUnits int64
	Currency         string
	PaidAt           string
	// Metadata holds the string form of the metadata sent at setup.
	Metadata map[string]string
}

type Paystack struct {
	client    *resty.Client
	publicKey string
	secretKey string
	currency  string
}

func NewPaystack(baseURL, publicKey, secretKey, currency string) *Paystack {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json")
	return &Paystack{
		client:    client,
		publicKey: publicKey,
		secretKey: secretKey,
		currency:  strings.ToUpper(currency),
	}
}

// ToMinorUnits converts a major-unit amount to the gateway's integer unit.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// NewReference returns a fresh transaction reference.
func NewReference() string {
	return "PG_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Setup prepares checkout parameters. With a secret key the transaction is
// also initialized server-side so the client can redirect instead.
func (p *Paystack) Setup(ctx context.Context, email string, amount float64, metadata map[string]any) (*SetupParams, error) {
	if p.publicKey == "" {
		return nil, ErrNotConfigured
	}
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, ErrInvalidAmount
	}

	params := &SetupParams{
		Key:              p.publicKey,
		Email:            strings.TrimSpace(email),
		AmountMinorUnits: minor,
		Currency:         p.currency,
		Reference:        NewReference(),
		Metadata:         metadata,
	}
	if p.secretKey == "" {
		return params, nil
	}

	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"email":     params.Email,
			"amount":    params.AmountMinorUnits,
			"currency":  params.Currency,
			"reference": params.Reference,
			"metadata":  metadata,
		}).
		SetResult(&body).
		Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	if resp.IsError() || !body.Status {
		return nil, fmt.Errorf("paystack initialize failed with status %d: %s", resp.StatusCode(), body.Message)
	}
	params.AuthorizationURL = body.Data.AuthorizationURL
	params.AccessCode = body.Data.AccessCode
	return params, nil
}

// Verify fetches the current state of a transaction.
func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	if p.secretKey == "" {
		return nil, ErrNotConfigured
	}

	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference string          `json:"reference"`
			Status    string          `json:"status"`
			Amount    int64           `json:"amount"`
			Currency  string          `json:"currency"`
			PaidAt    string          `json:"paid_at"`
			Metadata  json.RawMessage `json:"metadata"`
		} `json:"data"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&body).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	if resp.IsError() || !body.Status {
		return nil, fmt.Errorf("paystack verify failed with status %d: %s", resp.StatusCode(), body.Message)
	}
	return &Verification{
		Reference:        body.Data.Reference,
		Status:           body.Data.Status,
		AmountMinorUnits: body.Data.Amount,
		Currency:         body.Data.Currency,
		PaidAt:           body.Data.PaidAt,
		Metadata:         metadataStrings(body.Data.Metadata),
	}, nil
}

// metadataStrings flattens a metadata object. Transactions set up without
// metadata come back with an empty string, which yields nil.
func metadataStrings(raw json.RawMessage) map[string]string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
