package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(baseURL string, attempts int) *Client {
	return NewClient("sk_test_123", baseURL, 2*time.Second, attempts, zerolog.Nop())
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("line_items[0][price_data][unit_amount]"); got != "1999" {
			t.Errorf("unit_amount = %q, want 1999", got)
		}
		w.Write([]byte(`{"id":"cs_test_1","url":"https://pay.example/cs_test_1","payment_intent":"pi_1"}`))
	}))
	defer srv.Close()

	session, err := testClient(srv.URL, 1).CreateCheckoutSession(context.Background(), SessionParams{
		CustomerEmail: "buyer@example.com",
		SuccessURL:    "http://client/success",
		CancelURL:     "http://client/cancel",
		LineItems: []LineItem{
			{Name: "Widget", UnitAmountCents: 1999, Currency: "usd", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL == "" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestCreateCheckoutSession_RetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"cs_test_2","url":"https://pay.example/cs_test_2"}`))
	}))
	defer srv.Close()

	session, err := testClient(srv.URL, 2).CreateCheckoutSession(context.Background(), SessionParams{
		LineItems: []LineItem{{PriceID: "price_1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if session.ID != "cs_test_2" {
		t.Fatalf("unexpected session id %s", session.ID)
	}
}

func TestCreateCheckoutSession_NoRetryOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"no such price"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).CreateCheckoutSession(context.Background(), SessionParams{
		LineItems: []LineItem{{PriceID: "price_missing", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried; got %d calls", calls)
	}
}

func TestCreateCheckoutSession_ExhaustsAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 2).CreateCheckoutSession(context.Background(), SessionParams{
		LineItems: []LineItem{{PriceID: "price_1", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected persistent failure to surface")
	}
	if calls != 2 {
		t.Fatalf("expected attempt budget of 2, got %d calls", calls)
	}
}
