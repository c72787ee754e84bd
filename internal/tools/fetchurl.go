package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/llm"
)

var fetchURLTool = llm.Tool{
	Name:        "fetch_url",
	Description: "Fetch a web page and return its title and readable text content",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The http(s) URL of the page to fetch",
			},
		},
		"required": []string{"url"},
	},
}

// RegisterFetchURL adds the fetch_url tool backed by the given HTTP
// client; pass nil for a default client with a sane timeout.
func RegisterFetchURL(r *Registry, httpClient *http.Client) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.FetchURLTimeout}
	}
	r.Register(fetchURLTool, func(ctx context.Context, args map[string]any) (any, error) {
		return executeFetchURL(ctx, httpClient, args)
	})
}

func executeFetchURL(ctx context.Context, client *http.Client, args map[string]any) (any, error) {
	raw, _ := args["url"].(string)
	if raw == "" {
		return nil, fmt.Errorf("url parameter is required")
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url: %s", raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, config.FetchURLMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > config.FetchURLMaxText {
		text = text[:config.FetchURLMaxText] + "..."
	}

	return map[string]any{
		"url":   u.String(),
		"title": title,
		"text":  text,
	}, nil
}
