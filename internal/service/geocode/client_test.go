package geocode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "maps-key" {
			t.Errorf("unexpected key %q", got)
		}
		switch r.URL.Query().Get("address") {
		case "1 Raffles Place":
			_, _ = io.WriteString(w, `{"status":"OK","results":[{"formatted_address":"1 Raffles Pl, Singapore","geometry":{"location":{"lat":1.2844,"lng":103.8511}}}]}`)
		case "nowhere":
			_, _ = io.WriteString(w, `{"status":"ZERO_RESULTS","results":[]}`)
		default:
			_, _ = io.WriteString(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "maps-key", time.Second)
	ctx := context.Background()

	got, err := client.Geocode(ctx, " 1 Raffles Place ")
	if err != nil {
		t.Fatalf("Geocode err: %v", err)
	}
	if got.Latitude != 1.2844 || got.Longitude != 103.8511 || got.Source != "address" {
		t.Fatalf("unexpected coordinates %+v", got)
	}

	if _, err := client.Geocode(ctx, "nowhere"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if _, err := client.Geocode(ctx, "denied"); err == nil || !strings.Contains(err.Error(), "REQUEST_DENIED") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGeocodePreconditions(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient("http://unused", "key", time.Second).Geocode(ctx, "  "); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
	if _, err := NewClient("http://unused", "", time.Second).Geocode(ctx, "somewhere"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGeocodeHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "maps-key", time.Second).Geocode(context.Background(), "somewhere")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}
