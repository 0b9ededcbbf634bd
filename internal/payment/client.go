package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/linksnip/linksnip/internal/errx"
)

// Order is a payment order created at the gateway. Amount is in the
// currency's smallest unit (paise for INR).
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayClient creates orders at the payment gateway.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (Order, error)
}

type client struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
}

// ClientConfig holds configuration for the gateway client.
type ClientConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// NewClient creates a gateway client using HTTP basic auth with the
// key id/secret pair, the gateway's standard server-to-server scheme.
func NewClient(config ClientConfig) GatewayClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		keyID:      config.KeyID,
		keySecret:  config.KeySecret,
		currency:   config.Currency,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (Order, error) {
	const op = "payment.client.CreateOrder"

	if amount <= 0 {
		return Order{}, errx.E(op, errx.Invalid, errors.New("amount must be positive"))
	}

	payload := map[string]any{
		"amount":   amount,
		"currency": c.currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Order{}, errx.E(op, errx.Internal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, errx.E(op, errx.Internal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, errx.E(op, errx.Unavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Order{}, errx.E(op, errx.Unavailable,
			fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Order{}, errx.E(op, errx.Unavailable, fmt.Errorf("decoding gateway response: %w", err))
	}
	if order.ID == "" {
		return Order{}, errx.E(op, errx.Unavailable, errors.New("gateway response missing order id"))
	}
	return order, nil
}
