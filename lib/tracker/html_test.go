// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bureau-foundation/ticketref/lib/extract"
)

const trackerPage = `<html>
<head><title>Bug 42 - frobnicator broken</title></head>
<body><span class="status">accepted</span></body>
</html>`

func TestHTMLTitleProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ticket/42":
			w.Write([]byte(trackerPage))
		case "/ticket/43":
			w.Write([]byte("<html><head></head><body>bare page</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fixup, err := NewReGroupFixup(`Bug [0-9]+ - (.*)`, "")
	if err != nil {
		t.Fatalf("NewReGroupFixup: %v", err)
	}
	provider, err := NewHTMLTitleProvider(HTMLConfig{
		Name:    "testtrac",
		BaseURL: server.URL + "/ticket/",
		Format: Formatting{
			Prefix:  "bug",
			Postfix: " - " + server.URL + "/ticket/%s",
			Fixup:   fixup,
		},
		Status: extract.BadgeStatus{Class: "status"},
	})
	if err != nil {
		t.Fatalf("NewHTMLTitleProvider: %v", err)
	}

	t.Run("resolves title and status", func(t *testing.T) {
		got, err := provider.Resolve(context.Background(), ID{Number: "42"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		want := "bug#42: frobnicator broken - [accepted] - " + server.URL + "/ticket/42"
		if got != want {
			t.Fatalf("Resolve = %q, want %q", got, want)
		}
	})

	t.Run("http error status is not found", func(t *testing.T) {
		_, err := provider.Resolve(context.Background(), ID{Number: "99"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve error = %v, want ErrNotFound", err)
		}
	})

	t.Run("page without title is not found", func(t *testing.T) {
		_, err := provider.Resolve(context.Background(), ID{Number: "43"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve error = %v, want ErrNotFound", err)
		}
	})

	t.Run("synthesized pattern from prefix", func(t *testing.T) {
		match := provider.Pattern().FindStringSubmatch("please look at bug#42")
		if match == nil || match[1] != "42" {
			t.Fatalf("pattern did not capture bug#42: %v", match)
		}
	})
}

func TestHTMLTitleProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/ticket/"
	server.Close()

	provider, err := NewHTMLTitleProvider(HTMLConfig{Name: "gone", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewHTMLTitleProvider: %v", err)
	}
	_, err = provider.Resolve(context.Background(), ID{Number: "1"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Resolve error = %v, want ErrUnavailable", err)
	}
}

func TestHTMLTitleProviderConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HTMLConfig
		wantErr string
	}{
		{
			name:    "missing name",
			cfg:     HTMLConfig{BaseURL: "http://x/"},
			wantErr: "name is required",
		},
		{
			name:    "missing base URL",
			cfg:     HTMLConfig{Name: "x"},
			wantErr: "base URL is required",
		},
		{
			name: "postfix without verb",
			cfg: HTMLConfig{
				Name:    "x",
				BaseURL: "http://x/",
				Format:  Formatting{Postfix: " - no verb"},
			},
			wantErr: "postfix",
		},
		{
			name: "pattern without capture group",
			cfg: HTMLConfig{
				Name:    "x",
				BaseURL: "http://x/",
				Pattern: `#[0-9]+`,
			},
			wantErr: "no capture group",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTMLTitleProvider(tt.cfg)
			if err == nil {
				t.Fatalf("NewHTMLTitleProvider succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
