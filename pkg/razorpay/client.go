package razorpay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Razorpay REST API and verifies the signatures Razorpay
// attaches to checkout results and webhook deliveries.
type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// Config holds credentials for the Razorpay client
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string // defaults to the production API
}

// NewClient creates a new Razorpay client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &Client{
		keyID:         config.KeyID,
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
		baseURL:       baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if API credentials are present
func (c *Client) IsConfigured() bool {
	return c.keyID != "" && c.keySecret != ""
}

// KeyID returns the public key id clients need to open checkout
func (c *Client) KeyID() string {
	return c.keyID
}

// OrderRequest creates a provider order. Amount is in the currency's minor
// unit. Notes travel back unchanged on every callback about the order, which
// is how inbound events are correlated to a booking.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the provider's order record
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RefundRequest executes a refund against a captured payment. Amount nil
// means full refund.
type RefundRequest struct {
	Amount *int64            `json:"amount,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// Refund is the provider's refund record
type Refund struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a new order with the provider
func (c *Client) CreateOrder(req *OrderRequest) (*Order, error) {
	var order Order
	if err := c.post("/v1/orders", req, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("order creation returned no order id")
	}
	return &order, nil
}

// CreateRefund refunds a captured payment, fully or partially
func (c *Client) CreateRefund(providerPaymentID string, req *RefundRequest) (*Refund, error) {
	var refund Refund
	path := fmt.Sprintf("/v1/payments/%s/refund", providerPaymentID)
	if err := c.post(path, req, &refund); err != nil {
		return nil, err
	}
	if refund.ID == "" {
		return nil, fmt.Errorf("refund returned no refund id")
	}
	return &refund, nil
}

func (c *Client) post(path string, body interface{}, out interface{}) error {
	if !c.IsConfigured() {
		return fmt.Errorf("payment gateway not configured: missing API credentials")
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// VerifyCheckoutSignature checks the signature the buyer relays from
// checkout: HMAC-SHA256 over "orderID|paymentID" with the key secret.
func (c *Client) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	payload := orderID + "|" + paymentID
	return verifyHMAC([]byte(payload), signature, c.keySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// exact raw request body. Re-serialized bodies produce different bytes and
// fail verification, so callers must pass the bytes as received.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.webhookSecret)
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
