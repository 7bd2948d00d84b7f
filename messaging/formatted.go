// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// noticeRendererInstance is initialized once and reused. The
// configuration never changes and the goldmark parser is safe to share —
// actual parsing creates per-call state.
//
// The parser is stripped down to a single paragraph block parser so that
// reply text passes through literally: a reply starting with "#1234"
// must not become a heading, and stray * or _ in a ticket title must
// not become emphasis. The Linkify extension is the only active syntax,
// turning bare tracker URLs into anchors.
var (
	noticeRendererInstance goldmark.Markdown
	noticeRendererOnce     sync.Once
)

func getNoticeRenderer() goldmark.Markdown {
	noticeRendererOnce.Do(func() {
		noticeRendererInstance = goldmark.New(
			goldmark.WithParser(parser.NewParser(
				parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
			)),
			goldmark.WithExtensions(extension.Linkify),
		)
	})
	return noticeRendererInstance
}

// FormatNotice builds an m.notice message from a plain reply line,
// attaching an HTML rendering with URLs turned into links. When the
// HTML adds nothing over the plain body (no URLs, nothing to escape),
// only the plain body is sent.
func FormatNotice(body string) MessageContent {
	content := NewNotice(body)

	var rendered bytes.Buffer
	if err := getNoticeRenderer().Convert([]byte(body), &rendered); err != nil {
		return content
	}

	formatted := strings.TrimSpace(rendered.String())
	formatted = strings.TrimPrefix(formatted, "<p>")
	formatted = strings.TrimSuffix(formatted, "</p>")
	if formatted == "" || formatted == body {
		return content
	}

	content.Format = "org.matrix.custom.html"
	content.FormattedBody = formatted
	return content
}
