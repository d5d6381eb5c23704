package whttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		want  string
		found bool
	}{
		{"simple", "<html><head><title>Shop</title></head></html>", "Shop", true},
		{"trimmed", "<title>\n  RTX 4060 - Buy Online\r\n</title>", "RTX 4060 - Buy Online", true},
		{"empty", "<title></title>", "", true},
		{"missing", "<html><body>hi</body></html>", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Title(tt.doc)
			if got != tt.want || ok != tt.found {
				t.Errorf("Title() = %q, %v; want %q, %v", got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("missing custom header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><title>Results</title></html>"))
	}))
	defer srv.Close()

	res, err := Do(context.Background(), NewClient(time.Second, 0), &Request{
		URL:     srv.URL,
		Headers: []Header{{Name: "X-Test", Value: "1"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.StatusCode != http.StatusOK || res.Title != "Results" {
		t.Errorf("res = %+v", res)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second, 3)
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = 5 * time.Millisecond

	res, err := Do(context.Background(), client, &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.StatusCode != http.StatusOK || calls != 3 {
		t.Errorf("status = %d after %d calls", res.StatusCode, calls)
	}
	if res.Title != "" {
		t.Errorf("non-HTML response should have no title, got %q", res.Title)
	}
}
