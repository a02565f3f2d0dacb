// Package payment is the outbound integration with the hosted payment
// processor. It owns the checkout-session API client and webhook signature
// verification; nothing here touches the database.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/northcart/ecommerce-api/metrics"
)

// PriceIDPrefix is the processor's prefix convention for pre-registered
// price identifiers.
const PriceIDPrefix = "price_"

// ValidPriceID reports whether id is a well-formed processor price reference.
func ValidPriceID(id string) bool {
	return strings.HasPrefix(id, PriceIDPrefix) && len(id) > len(PriceIDPrefix)
}

// LineItem is one line of a checkout session. Either PriceID is set
// (pre-registered mode) or Name/UnitAmountCents/Currency describe ad-hoc
// price data computed from the cart.
type LineItem struct {
	PriceID         string
	Name            string
	UnitAmountCents int64
	Currency        string
	Quantity        int
}

// SessionParams describes a checkout session to create.
type SessionParams struct {
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	LineItems         []LineItem
}

// Session is the processor's view of an in-progress payment attempt.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the processor's REST API. Construct with NewClient; the
// zero value is not usable.
type Client struct {
	secretKey   string
	baseURL     string
	maxAttempts int
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewClient builds a gateway client. timeout bounds each HTTP attempt;
// maxAttempts bounds total tries (minimum 1).
func NewClient(secretKey, baseURL string, timeout time.Duration, maxAttempts int, log zerolog.Logger) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		secretKey:   secretKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

// CreateCheckoutSession creates a hosted checkout session and returns its id
// and redirect URL. Transient failures (network errors, 5xx) are retried with
// doubling backoff up to the configured attempt budget.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	if p.ClientReferenceID != "" {
		form.Set("client_reference_id", p.ClientReferenceID)
	}

	for i, item := range p.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		if item.PriceID != "" {
			form.Set(prefix+"[price]", item.PriceID)
			continue
		}
		form.Set(prefix+"[price_data][currency]", item.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmountCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
	}

	body, err := c.post(ctx, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("payment: failed to parse session response: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("payment: gateway returned incomplete session")
	}
	return &session, nil
}

// post performs an authenticated form POST with bounded retries on transient
// failures. 4xx responses are terminal and never retried.
func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.GatewayRetriesTotal.Inc()
			c.log.Warn().Err(lastErr).Int("attempt", attempt).Str("path", path).
				Msg("retrying gateway call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("payment: gateway unreachable: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("payment: reading gateway response: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("payment: gateway error (%d)", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			var ae apiError
			if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
				return nil, fmt.Errorf("payment: gateway rejected request: %s", ae.Error.Message)
			}
			return nil, fmt.Errorf("payment: gateway rejected request (%d)", resp.StatusCode)
		default:
			return body, nil
		}
	}

	return nil, lastErr
}
