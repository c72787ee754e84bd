package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchURLExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Test Page</title><script>var x = 1;</script></head>
			<body><h1>Heading</h1><p>Some   body    text.</p><style>p{}</style></body></html>`))
	}))
	defer srv.Close()

	res, err := executeFetchURL(context.Background(), srv.Client(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	payload := res.(map[string]any)
	if payload["title"] != "Test Page" {
		t.Fatalf("unexpected title: %v", payload["title"])
	}
	text := payload["text"].(string)
	if !strings.Contains(text, "Heading") || !strings.Contains(text, "Some body text.") {
		t.Fatalf("unexpected text: %q", text)
	}
	if strings.Contains(text, "var x") {
		t.Fatalf("script content leaked: %q", text)
	}
}

func TestFetchURLRejectsBadScheme(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "not a url", ""} {
		if _, err := executeFetchURL(context.Background(), http.DefaultClient, map[string]any{"url": u}); err == nil {
			t.Errorf("expected rejection of %q", u)
		}
	}
}

func TestFetchURLUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := executeFetchURL(context.Background(), srv.Client(), map[string]any{"url": srv.URL}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchURLHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := executeFetchURL(ctx, srv.Client(), map[string]any{"url": srv.URL}); err == nil {
		t.Fatal("expected context deadline error")
	}
}
