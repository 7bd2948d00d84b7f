// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Parse decodes an HTML document from r. contentType is the raw
// Content-Type header value; when it declares a charset the body is
// converted to UTF-8, otherwise the decoder falls back to meta-tag
// and BOM detection before assuming the bytes are already UTF-8.
func Parse(r io.Reader, contentType string) (*goquery.Document, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("extract: detecting charset: %w", err)
	}
	document, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, fmt.Errorf("extract: parsing document: %w", err)
	}
	return document, nil
}

// Title returns the whitespace-collapsed text of the document's title
// element. A document without a title element is an extraction
// failure: tracker pages always carry one, so its absence means the
// fetch did not return the page we expected.
func Title(document *goquery.Document) (string, error) {
	title := document.Find("title")
	if title.Length() == 0 {
		return "", fmt.Errorf("extract: document has no title element")
	}
	return CollapseSpace(title.First().Text()), nil
}

// DecodeText converts a plain-text response body to UTF-8 using the
// charset declared in contentType, with the same detection fallbacks
// as Parse. Used for trackers that publish an index as a single text
// document rather than HTML.
func DecodeText(r io.Reader, contentType string) (string, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", fmt.Errorf("extract: detecting charset: %w", err)
	}
	text, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("extract: reading text: %w", err)
	}
	return string(text), nil
}

// CollapseSpace replaces every run of whitespace with a single space
// and trims leading and trailing whitespace.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
