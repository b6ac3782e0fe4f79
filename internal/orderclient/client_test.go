package orderclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/resilience"
)

func newClient(serverURL string) *Client {
	return New(serverURL, "secret", &resilience.HTTPClient{
		Client:      &http.Client{Timeout: time.Second},
		MaxAttempts: 1,
	})
}

func TestGetOrder(t *testing.T) {
	rec := billing.PersistedOrder{
		ID:             "ord-1",
		DiscountAmount: decimal.RequireFromString("400"),
		FinalPrice:     decimal.RequireFromString("5000"),
		SalesmanID:     "s-1",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/ord-1" {
			t.Errorf("path = %s, want /orders/ord-1", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	got, err := newClient(srv.URL).GetOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.ID != "ord-1" || !got.FinalPrice.Equal(rec.FinalPrice) {
		t.Fatalf("got %+v", got)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).GetOrder(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		var data billing.BillingData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newClient(srv.URL).CreateOrder(context.Background(), billing.BillingData{Customer: "c-1"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/orders" {
		t.Fatalf("request = %s %s, want POST /orders", gotMethod, gotPath)
	}
}

func TestUpdateOrder(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
	}))
	defer srv.Close()

	err := newClient(srv.URL).UpdateOrder(context.Background(), billing.BillingData{OrderID: "ord-9"})
	if err != nil {
		t.Fatalf("update order: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/orders/ord-9" {
		t.Fatalf("request = %s %s, want PUT /orders/ord-9", gotMethod, gotPath)
	}
}

func TestUpdateOrderRequiresID(t *testing.T) {
	if err := newClient("http://unused").UpdateOrder(context.Background(), billing.BillingData{}); err == nil {
		t.Fatal("expected error for missing order id")
	}
}

func TestUpdateOrderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := newClient(srv.URL).UpdateOrder(context.Background(), billing.BillingData{OrderID: "ord-9"}); err == nil {
		t.Fatal("expected error for 4xx response")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %s, want /healthz", r.URL.Path)
		}
	}))
	defer srv.Close()

	if err := newClient(srv.URL).Ping(context.Background(), time.Second); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newClient(srv.URL).Ping(context.Background(), time.Second); err == nil {
		t.Fatal("expected error for 5xx health response")
	}
}
