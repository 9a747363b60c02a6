package birdeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchHistoryFiltersBadPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/defi/history_price" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-chain") != "solana" {
			t.Errorf("missing x-chain header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"items":[
			{"unixTime":1760000000,"value":1.5},
			{"unixTime":1760000060,"value":0},
			{"unixTime":1760000120,"value":null},
			{"unixTime":1760000180,"value":2.25}
		]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "")
	points, err := client.FetchHistory(context.Background(), "addr", time.Unix(1760000000, 0), time.Unix(1760000180, 0))
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 (zero and null filtered)", len(points))
	}
	if !points[0].Ts.Equal(time.Unix(1760000000, 0).UTC()) {
		t.Fatalf("first ts = %s", points[0].Ts)
	}
	if points[1].Price.String() != "2.25" {
		t.Fatalf("second price = %s, want 2.25", points[1].Price)
	}
}

func TestFetchSnapshotDegradesWithoutSecurity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/defi/token_overview":
			w.Write([]byte(`{"success":true,"data":{"address":"addr","symbol":"SOL","name":"Solana","price":141.2,"v24hUSD":1000000,"holder":9000}}`))
		default:
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "key")
	snap, err := client.FetchSnapshot(context.Background(), "addr")
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snap.Symbol != "SOL" {
		t.Fatalf("symbol = %q", snap.Symbol)
	}
	if snap.Price == nil || snap.Price.String() != "141.2" {
		t.Fatalf("price = %v", snap.Price)
	}
	if snap.Top10HolderPct != nil {
		t.Fatalf("security fields should be absent when the endpoint fails")
	}
}

func TestAPIErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "")
	_, err := client.FetchSnapshot(context.Background(), "addr")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %T %v, want *APIError", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", apiErr.Status)
	}
}
