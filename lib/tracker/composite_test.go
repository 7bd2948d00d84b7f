// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const compositePattern = `\b(?P<path>[\w/]+)#(?P<number>[0-9]{4,})\b`

func TestCompositeProvider(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("<html><head><title>Fix the thing · Issues</title></head></html>"))
	}))
	defer server.Close()

	provider, err := NewCompositeProvider(CompositeConfig{
		Name:    "gitlab",
		BaseURL: server.URL + "/",
		Pattern: compositePattern,
		Format:  Formatting{Postfix: " - " + server.URL + "/%s"},
	})
	if err != nil {
		t.Fatalf("NewCompositeProvider: %v", err)
	}

	t.Run("assembles the page URL from both segments", func(t *testing.T) {
		got, err := provider.Resolve(context.Background(), ID{Path: "mygroup/proj", Number: "1234"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if gotPath != "/mygroup/proj/issues/1234" {
			t.Fatalf("fetched %q, want /mygroup/proj/issues/1234", gotPath)
		}
		want := "Fix the thing · Issues - " + server.URL + "/mygroup/proj#1234"
		if got != want {
			t.Fatalf("Resolve = %q, want %q", got, want)
		}
	})

	t.Run("identifier without path is not found", func(t *testing.T) {
		_, err := provider.Resolve(context.Background(), ID{Number: "1234"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve error = %v, want ErrNotFound", err)
		}
	})

	t.Run("pattern captures both segments", func(t *testing.T) {
		pattern := provider.Pattern()
		match := pattern.FindStringSubmatch("see mygroup/proj#1234 for details")
		if match == nil {
			t.Fatalf("pattern did not match")
		}
		if got := match[pattern.SubexpIndex("path")]; got != "mygroup/proj" {
			t.Fatalf("path = %q, want mygroup/proj", got)
		}
		if got := match[pattern.SubexpIndex("number")]; got != "1234" {
			t.Fatalf("number = %q, want 1234", got)
		}
	})
}

func TestCompositeProviderIssueSegment(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("<html><head><title>t</title></head></html>"))
	}))
	defer server.Close()

	provider, err := NewCompositeProvider(CompositeConfig{
		Name:         "mr",
		BaseURL:      server.URL + "/",
		IssueSegment: "/merge_requests/",
		Pattern:      compositePattern,
	})
	if err != nil {
		t.Fatalf("NewCompositeProvider: %v", err)
	}
	if _, err := provider.Resolve(context.Background(), ID{Path: "a/b", Number: "5678"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotPath != "/a/b/merge_requests/5678" {
		t.Fatalf("fetched %q, want /a/b/merge_requests/5678", gotPath)
	}
}
