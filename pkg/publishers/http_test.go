package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

func TestHTTPPublisherDeliversMutationEvent(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if desk := r.Header.Get("X-Desk"); desk != "fx" {
			t.Errorf("missing configured header, got %q", desk)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		got <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Desk": "fx"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("desk-7", apiclient.Mutation{
		Method:       http.MethodPatch,
		Endpoint:     "/reservations/res-1/status",
		ResourcePath: "/reservations",
		Invalidated:  2,
		RequestKey:   "5f0c2a6e-1111-4222-8333-944455556666",
		OccurredAt:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.FixedZone("IST", 19800)),
	})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	body := <-got
	want := map[string]any{
		"client_id":           "desk-7",
		"method":              http.MethodPatch,
		"endpoint":            "/reservations/res-1/status",
		"resource_path":       "/reservations",
		"invalidated_entries": float64(2),
		"request_key":         "5f0c2a6e-1111-4222-8333-944455556666",
		"occurred_at":         "2026-03-02T05:00:00Z",
	}
	for k, v := range want {
		if body[k] != v {
			t.Fatalf("body[%q] = %v, want %v", k, body[k], v)
		}
	}
}

func TestHTTPPublisherDefaultsToPost(t *testing.T) {
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	evt := NewEvent("desk-7", apiclient.Mutation{Method: http.MethodPost, Endpoint: "/accounts", ResourcePath: "/accounts"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if m := <-methods; m != http.MethodPost {
		t.Fatalf("expected POST, got %s", m)
	}
}

func TestHTTPPublisherRejectedEventIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown client", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 1},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("desk-7", apiclient.Mutation{Method: http.MethodDelete, Endpoint: "/accounts/acc-2", ResourcePath: "/accounts"})
	err = pub.Publish(context.Background(), evt)
	if err == nil {
		t.Fatalf("expected error on 422 response")
	}
	if want := "http response status 422: unknown client"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewHTTPPublisherRequiresConfig(t *testing.T) {
	if _, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "audit", Type: TypeHTTP}, nil); err == nil {
		t.Fatalf("expected error without http config")
	}
}
