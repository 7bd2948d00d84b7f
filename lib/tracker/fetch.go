// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bureau-foundation/ticketref/lib/extract"
	"github.com/bureau-foundation/ticketref/lib/version"
)

// maxFetchSize bounds a single tracker page read. Titles and status
// badges live in the first kilobytes; the bound only guards against
// a pathological response.
const maxFetchSize = 2 << 20

var userAgent = "ticketref/" + version.Short()

// fetchBody GETs pageURL with the per-fetch timeout applied and
// returns the bounded response body plus its Content-Type. Transport
// failures map to ErrUnavailable, non-2xx statuses to ErrNotFound.
func fetchBody(ctx context.Context, client *http.Client, timeout time.Duration, pageURL string) ([]byte, string, error) {
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: building request for %s: %v", ErrUnavailable, pageURL, err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := client.Do(request)
	if err != nil {
		return nil, "", fmt.Errorf("%w: GET %s: %v", ErrUnavailable, pageURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: GET %s: status %d", ErrNotFound, pageURL, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxFetchSize))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", ErrUnavailable, pageURL, err)
	}
	return body, response.Header.Get("Content-Type"), nil
}

// fetchDocument GETs pageURL and parses the body as HTML, honoring
// the response charset.
func fetchDocument(ctx context.Context, client *http.Client, timeout time.Duration, pageURL string) (*goquery.Document, error) {
	body, contentType, err := fetchBody(ctx, client, timeout, pageURL)
	if err != nil {
		return nil, err
	}
	document, err := extract.Parse(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, pageURL, err)
	}
	return document, nil
}

// fetchText GETs pageURL and decodes the body as plain text, honoring
// the response charset.
func fetchText(ctx context.Context, client *http.Client, timeout time.Duration, pageURL string) (string, error) {
	body, contentType, err := fetchBody(ctx, client, timeout, pageURL)
	if err != nil {
		return "", err
	}
	text, err := extract.DecodeText(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, pageURL, err)
	}
	return text, nil
}
